package models

type Technician struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Phone    string   `yaml:"phone" json:"phone"`
	Email    string   `yaml:"email" json:"email"`
	Services []string `yaml:"services" json:"services"`
}

// Handles reports whether serviceType is one of the technician's tags.
// Tags are matched exactly.
func (t Technician) Handles(serviceType string) bool {
	if serviceType == "" {
		return false
	}
	for _, s := range t.Services {
		if s == serviceType {
			return true
		}
	}
	return false
}
