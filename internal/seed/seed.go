// Package seed loads reference and sample data from a YAML file through the
// same services the HTTP API uses. Entries that already exist are skipped,
// so a file can be applied more than once.
package seed

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"storefront/internal/apperror"
	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/models"
)

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// File is the layout of a seed document.
type File struct {
	Categories []catalog.CategoryInput  `yaml:"categories"`
	Sizes      []catalog.ReferenceInput `yaml:"sizes"`
	Colors     []catalog.ReferenceInput `yaml:"colors"`
	Users      []User                   `yaml:"users"`
	Products   []catalog.ProductInput   `yaml:"products"`
}

type Services struct {
	Categories *catalog.CategoryService
	Sizes      *catalog.ReferenceService
	Colors     *catalog.ReferenceService
	Products   *catalog.ProductService
	Accounts   *auth.Service
}

// Report counts what one run did.
type Report struct {
	Created int
	Skipped int
}

func (r *Report) record(area, name string, err error) error {
	switch {
	case err == nil:
		r.Created++
		return nil
	case apperror.Is(err, apperror.KindConflict):
		log.Printf("[SEED] [INFO] %s %q exists, skipped", area, name)
		r.Skipped++
		return nil
	default:
		return errors.Wrapf(err, "seed %s %q", area, name)
	}
}

func Decode(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, errors.Wrap(err, "decode seed file")
	}
	return f, nil
}

func LoadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, errors.Wrap(err, "open seed file")
	}
	defer fh.Close()
	return Decode(fh)
}

// Apply creates every entry of f. Categories go first so products can name
// them. The first error other than a conflict stops the run.
func Apply(ctx context.Context, svc Services, f File) (Report, error) {
	var report Report

	for _, in := range f.Categories {
		_, err := svc.Categories.Create(ctx, in)
		if err := report.record("category", in.Name, err); err != nil {
			return report, err
		}
	}
	for _, in := range f.Sizes {
		_, err := svc.Sizes.Create(ctx, in)
		if err := report.record("size", in.Name, err); err != nil {
			return report, err
		}
	}
	for _, in := range f.Colors {
		_, err := svc.Colors.Create(ctx, in)
		if err := report.record("color", in.Name, err); err != nil {
			return report, err
		}
	}
	for _, u := range f.Users {
		role := u.Role
		if role == "" {
			role = models.RoleUser
		}
		_, err := svc.Accounts.CreateUser(ctx, auth.RegisterInput{Name: u.Name, Email: u.Email, Password: u.Password}, role)
		if err := report.record("user", u.Email, err); err != nil {
			return report, err
		}
	}
	for _, in := range f.Products {
		_, err := svc.Products.Create(ctx, in, nil)
		if err := report.record("product", in.Name, err); err != nil {
			return report, err
		}
	}

	log.Printf("[SEED] [INFO] done created=%d skipped=%d", report.Created, report.Skipped)
	return report, nil
}
