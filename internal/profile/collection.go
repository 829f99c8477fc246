package profile

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	ProfileIDField       = "ID"
	ProfileCityField     = "City"
	ProfileReligionField = "Religion"
)

type Profiles struct {
	Items []*Profile
}

func (p *Profiles) Len() int {
	return len(p.Items)
}

func (p *Profiles) FindByID(id string) *Profile {
	for _, candidate := range p.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

func (pr *Profile) GetStringField(name string) string {
	switch name {
	case ProfileIDField:
		return pr.ID
	case ProfileCityField:
		return pr.Identity.City
	case ProfileReligionField:
		return pr.Identity.Religion

	default:
		return ""
	}
}

// Exclude removes profiles whose named field matches one of the targets.
func (p *Profiles) Exclude(name string, targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx, candidate := range p.Items {
			if candidate.GetStringField(name) == target {
				p.RemoveByIndex(idx)
				excluded = append(excluded, candidate.ID)
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex removes a profile from the list by index. Does not preserve order.
func (p *Profiles) RemoveByIndex(idx int) {
	p.Items[idx] = p.Items[len(p.Items)-1]
	p.Items = p.Items[:len(p.Items)-1]
}

func (p *Profiles) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCity groups candidate summaries per city for review.
func (p *Profiles) ReportByCity() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, candidate := range p.Items {
		key := candidate.Identity.City
		if key == "" {
			key = "unknown"
		}
		if candidate.Identity.Country != "" {
			key = fmt.Sprintf("%s (%s)", key, candidate.Identity.Country)
		}
		report[key] = append(report[key], map[string]string{
			"id":         candidate.ID,
			"occupation": candidate.Identity.Occupation,
			"religion":   candidate.Identity.Religion,
			"community":  candidate.Identity.CasteCommunity,
			"language":   candidate.Identity.NativeLanguage,
		})
	}
	return report
}
