package physics

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

/// LoadTunables reads a YAML tunables file. Missing keys keep their
/// DefaultTunables values, so a file may override only what it cares about.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, errors.Wrap(err, "physics: reading tunables")
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, errors.Wrap(err, "physics: parsing tunables")
	}

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

/// Save writes the tunables as YAML.
func (t Tunables) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "physics: encoding tunables")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "physics: writing tunables")
	}
	return nil
}

/// Validate rejects values the solver and spaces cannot operate with.
func (t Tunables) Validate() error {
	if t.SOROmega <= 0.0 || t.SOROmega >= 2.0 {
		return errors.Errorf("physics: sor_omega %g outside (0, 2)", t.SOROmega)
	}
	if t.Iterations < 1 {
		return errors.Errorf("physics: iterations %d < 1", t.Iterations)
	}
	if t.ERP < 0.0 || t.ERP > 1.0 {
		return errors.Errorf("physics: erp %g outside [0, 1]", t.ERP)
	}
	if t.CFM < 0.0 {
		return errors.Errorf("physics: cfm %g negative", t.CFM)
	}
	if t.CapSegments < 3 {
		return errors.Errorf("physics: cap_segments %d < 3", t.CapSegments)
	}
	if t.MaxContacts < 1 || t.MaxContacts > MaxContactPoints {
		return errors.Errorf("physics: max_contacts %d outside [1, %d]", t.MaxContacts, MaxContactPoints)
	}
	if t.HashMinLevel > t.HashMaxLevel {
		return errors.Errorf("physics: hash level range [%d, %d] inverted", t.HashMinLevel, t.HashMaxLevel)
	}
	return nil
}
