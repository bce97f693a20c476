package openapi

import (
	"context"
	"testing"

	"github.com/parishkit/formengine/pkg/schema"
)

const registrationDoc = `
openapi: 3.0.3
info:
  title: Camp API
  version: "1.0"
paths: {}
components:
  schemas:
    Registration:
      type: object
      title: Camp Registration
      description: Sign-up record for summer camp.
      required: [full_name, email]
      properties:
        full_name:
          type: string
          minLength: 2
          maxLength: 80
        email:
          type: string
          format: email
        age:
          type: integer
          minimum: 5
          maximum: 17
        meal:
          type: string
          enum: [chicken, vegetarian]
        newsletter:
          type: boolean
        notes:
          type: string
          maxLength: 2000
        attachment:
          type: object
`

func TestImportForm(t *testing.T) {
	t.Parallel()

	form, err := ImportForm(context.Background(), []byte(registrationDoc), "Registration")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if form.Title != "Camp Registration" {
		t.Fatalf("title = %q", form.Title)
	}
	// the object-typed attachment property has no field mapping
	if len(form.Fields) != 6 {
		t.Fatalf("got %d fields, want 6: %+v", len(form.Fields), form.Fields)
	}

	byName := map[string]*schema.Field{}
	for i := range form.Fields {
		byName[form.Fields[i].Name] = &form.Fields[i]
	}

	name := byName["full_name"]
	if name == nil || name.Kind != schema.KindText || !name.Required {
		t.Fatalf("full_name = %+v", name)
	}
	if name.MinLength == nil || *name.MinLength != 2 || name.MaxLength == nil || *name.MaxLength != 80 {
		t.Fatalf("full_name bounds = %+v", name)
	}
	if name.Label != "Full name" {
		t.Fatalf("full_name label = %q", name.Label)
	}

	if email := byName["email"]; email == nil || email.Kind != schema.KindEmail || !email.Required {
		t.Fatalf("email = %+v", email)
	}

	age := byName["age"]
	if age == nil || age.Kind != schema.KindNumber || age.Required {
		t.Fatalf("age = %+v", age)
	}
	if age.Min == nil || *age.Min != 5 || age.Max == nil || *age.Max != 17 {
		t.Fatalf("age bounds = %+v", age)
	}

	meal := byName["meal"]
	if meal == nil || meal.Kind != schema.KindSelect || len(meal.Options) != 2 {
		t.Fatalf("meal = %+v", meal)
	}
	if meal.Options[0].Value != "chicken" || meal.Options[0].Label != "Chicken" {
		t.Fatalf("meal options = %+v", meal.Options)
	}

	if newsletter := byName["newsletter"]; newsletter == nil || newsletter.Kind != schema.KindCheckbox {
		t.Fatalf("newsletter = %+v", newsletter)
	}

	// long strings become textareas
	if notes := byName["notes"]; notes == nil || notes.Kind != schema.KindTextarea {
		t.Fatalf("notes = %+v", notes)
	}

	if issues := schema.Check(form); len(issues) != 0 {
		t.Fatalf("imported draft has schema issues: %+v", issues)
	}
}

func TestImportFormUnknownComponent(t *testing.T) {
	t.Parallel()

	if _, err := ImportForm(context.Background(), []byte(registrationDoc), "Missing"); err == nil {
		t.Fatal("expected error for unknown component")
	}
	if _, err := ImportForm(context.Background(), nil, "Registration"); err == nil {
		t.Fatal("expected error for empty document")
	}
}
