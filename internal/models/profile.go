package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultAvatar is shown for profiles that never uploaded one.
const DefaultAvatar = "/avatar-mock.svg"

// Profile is the single normalized user profile shape served by the API.
type Profile struct {
	ID         RecordID `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	City       string   `json:"city"`
	Business   string   `json:"business"`
	Category   string   `json:"category,omitempty"`
	Product    string   `json:"product,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Stage      string   `json:"stage,omitempty"`
	Goals      []string `json:"goals"`
	Bio        string   `json:"bio"`
	Avatar     string   `json:"avatar"`
	Gallery    []string `json:"gallery"`
}

// rawProfile accepts both the flat fixture layout and the nested account/profile layout.
type rawProfile struct {
	ID         RecordID        `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      *string         `json:"phone"`
	City       string          `json:"city"`
	Business   string          `json:"business"`
	Category   string          `json:"category"`
	Product    string          `json:"product"`
	Experience string          `json:"experience"`
	Stage      string          `json:"stage"`
	Goals      json.RawMessage `json:"goals"`
	Bio        string          `json:"bio"`
	Avatar     string          `json:"avatar"`
	Gallery    []string        `json:"gallery"`

	Account *struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	} `json:"account"`
	Nested *struct {
		BusinessName  string          `json:"businessName"`
		Category      string          `json:"category"`
		CityState     string          `json:"cityState"`
		Bio           string          `json:"bio"`
		Experience    string          `json:"experience"`
		BusinessStage string          `json:"businessStage"`
		Goals         json.RawMessage `json:"goals"`
	} `json:"profile"`
}

// NormalizeProfile converts either stored user shape into a Profile.
// Flat fields win; nested account/profile fields fill the gaps.
func NormalizeProfile(data []byte) (Profile, error) {
	var raw rawProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	p := Profile{
		ID:         raw.ID,
		Name:       raw.Name,
		Email:      raw.Email,
		City:       raw.City,
		Business:   raw.Business,
		Category:   raw.Category,
		Product:    raw.Product,
		Experience: raw.Experience,
		Stage:      raw.Stage,
		Goals:      decodeGoals(raw.Goals),
		Bio:        raw.Bio,
		Avatar:     raw.Avatar,
		Gallery:    raw.Gallery,
	}
	if raw.Phone != nil {
		p.Phone = *raw.Phone
	}

	if a := raw.Account; a != nil {
		p.Name = firstNonEmpty(p.Name, a.FullName)
		p.Email = firstNonEmpty(p.Email, a.Email)
		p.Phone = firstNonEmpty(p.Phone, a.Phone)
	}
	if n := raw.Nested; n != nil {
		p.City = firstNonEmpty(p.City, n.CityState)
		p.Business = firstNonEmpty(p.Business, n.BusinessName, n.Category)
		p.Category = firstNonEmpty(p.Category, n.Category)
		p.Bio = firstNonEmpty(p.Bio, n.Bio)
		p.Experience = firstNonEmpty(p.Experience, n.Experience)
		p.Stage = firstNonEmpty(p.Stage, n.BusinessStage)
		if len(p.Goals) == 0 {
			p.Goals = decodeGoals(n.Goals)
		}
	}

	p.Fill()
	return p, nil
}

// Fill applies display defaults and replaces nil lists with empty ones.
func (p *Profile) Fill() {
	if p.Name == "" {
		p.Name = "User"
	}
	if p.Avatar == "" {
		p.Avatar = DefaultAvatar
	}
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	if p.Goals == nil {
		p.Goals = []string{}
	}
}

// UnmarshalJSON routes every decode of a Profile through NormalizeProfile.
func (p *Profile) UnmarshalJSON(data []byte) error {
	np, err := NormalizeProfile(data)
	if err != nil {
		return err
	}
	*p = np
	return nil
}

// Matches reports whether the profile's name, business or city contains query, ignoring case.
func (p Profile) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Business), q) ||
		strings.Contains(strings.ToLower(p.City), q)
}

// goals were stored as a list, and by older clients as a comma separated string.
func decodeGoals(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		out := []string{}
		for _, g := range strings.Split(s, ",") {
			if g = strings.TrimSpace(g); g != "" {
				out = append(out, g)
			}
		}
		return out
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
