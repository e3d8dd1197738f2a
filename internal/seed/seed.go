// Package seed loads reference data (employees and attendance zones) from
// a YAML file into a store.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"attendance_gate/internal/location"
	"attendance_gate/internal/models"
)

// Writer is the part of a store the seeder needs.
type Writer interface {
	SaveEmployee(ctx context.Context, e models.Employee) error
	SaveRule(ctx context.Context, r models.GeofenceRule) error
}

type File struct {
	Employees []Employee `yaml:"employees"`
	Zones     []Zone     `yaml:"zones"`
}

type Employee struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Position string `yaml:"position"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Status   string `yaml:"status"`
	JoinDate string `yaml:"join_date"`
	PIN      string `yaml:"pin"`
}

// Zone coordinates stay strings so decimal commas survive the round trip.
type Zone struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Lat    string `yaml:"latitude"`
	Lng    string `yaml:"longitude"`
	Radius string `yaml:"radius_meters"`
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool)
	for i, e := range f.Employees {
		if e.ID == "" {
			return nil, fmt.Errorf("employee %d: id is required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("employee %s: duplicate id", e.ID)
		}
		seen[e.ID] = true
		if e.JoinDate != "" {
			if _, err := time.Parse(models.DateLayout, e.JoinDate); err != nil {
				return nil, fmt.Errorf("employee %s: join_date %q: expected YYYY-MM-DD", e.ID, e.JoinDate)
			}
		}
	}
	// Unparseable zones are skipped at evaluation time anyway, but a seed
	// file is hand-written, so reject them here.
	for i, z := range f.Zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zone %d: id is required", i)
		}
		if _, err := z.raw().Normalize(); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.ID, err)
		}
	}
	return &f, nil
}

func (z Zone) raw() location.RawRule {
	return location.RawRule{ID: z.ID, ZoneName: z.Name, Latitude: z.Lat, Longitude: z.Lng, RadiusMeters: z.Radius}
}

// Apply upserts every employee and zone. PINs are hashed before storage.
func (f *File) Apply(ctx context.Context, w Writer) error {
	for _, e := range f.Employees {
		emp := models.Employee{
			ID:       e.ID,
			Name:     e.Name,
			Position: e.Position,
			Email:    e.Email,
			Phone:    e.Phone,
			Status:   e.Status,
		}
		if emp.Status == "" {
			emp.Status = models.EmployeeActive
		}
		if e.JoinDate != "" {
			emp.JoinDate, _ = time.Parse(models.DateLayout, e.JoinDate)
		}
		if e.PIN != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(e.PIN), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash pin for %s: %w", e.ID, err)
			}
			emp.PinHash = string(hash)
		}
		if err := w.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}
	for _, z := range f.Zones {
		rule := models.GeofenceRule{
			ID:           z.ID,
			ZoneName:     z.Name,
			Latitude:     z.Lat,
			Longitude:    z.Lng,
			RadiusMeters: z.Radius,
		}
		if err := w.SaveRule(ctx, rule); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"employees": len(f.Employees),
		"zones":     len(f.Zones),
	}).Info("Seed data applied.")
	return nil
}
