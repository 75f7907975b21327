package service

import (
	"errors"
	"fmt"
	"os"

	"titan/internal/models"

	"gopkg.in/yaml.v2"
)

var ErrNoTechnician = errors.New("no technician available for service")

// TechnicianService is a read-only view over the static roster.
type TechnicianService struct {
	roster []models.Technician
}

func NewTechnicianService(roster []models.Technician) *TechnicianService {
	return &TechnicianService{roster: append([]models.Technician(nil), roster...)}
}

// LoadRoster reads technicians from a YAML file with a top-level
// "technicians" list.
func LoadRoster(path string) ([]models.Technician, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read technicians: %w", err)
	}

	var file struct {
		Technicians []models.Technician `yaml:"technicians"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse technicians: %w", err)
	}

	seen := make(map[string]bool, len(file.Technicians))
	for _, t := range file.Technicians {
		if t.ID == "" {
			return nil, fmt.Errorf("technician %q has no id", t.Name)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate technician id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return file.Technicians, nil
}

func (s *TechnicianService) List() []models.Technician {
	return append([]models.Technician(nil), s.roster...)
}

// ByService returns every technician tagged for serviceType, in roster order.
func (s *TechnicianService) ByService(serviceType string) []models.Technician {
	out := make([]models.Technician, 0)
	for _, t := range s.roster {
		if t.Handles(serviceType) {
			out = append(out, t)
		}
	}
	return out
}

// AssignTechnician returns the first technician in roster order that
// handles serviceType.
func (s *TechnicianService) AssignTechnician(serviceType string) (models.Technician, error) {
	for _, t := range s.roster {
		if t.Handles(serviceType) {
			return t, nil
		}
	}
	return models.Technician{}, fmt.Errorf("%w %q", ErrNoTechnician, serviceType)
}
