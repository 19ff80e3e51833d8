package roster

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobbot-engine/internal/domain"
)

const sample = `Email,Password,FirstName,LastName,Phone,ResumePath,Status,LinkedInUrl,PreferredLocation
a@x.com,pw,Ada,L,555,r.pdf,Active,https://linkedin.com/in/ada,
b@x.com,pw,Bob,M,556,r.pdf,inactive,,
c@x.com,,Cy,N,557,r.pdf,ACTIVE,,Austin
A@X.com,other,Dup,D,558,r.pdf,Active,,
`

func TestLoadActiveOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.csv")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Email != "a@x.com" || got[1].Email != "c@x.com" {
		t.Fatalf("got %+v", got)
	}
	if got[0].LinkedInURL != "https://linkedin.com/in/ada" || got[1].PreferredLocation != "Austin" {
		t.Fatalf("optional columns: %+v", got)
	}
	if got[0].Password != "pw" {
		t.Fatal("duplicate email must not replace the first row")
	}
}

func TestParseWithoutOptionalColumns(t *testing.T) {
	in := "email,password,firstname,lastname,phone,resumepath,status\nz@x.com,p,Z,Z,1,r,active\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Active || got[0].LinkedInURL != "" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseMissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("Email,Password\na,b\n"))
	if err == nil || !strings.Contains(err.Error(), "FirstName") {
		t.Fatalf("err=%v", err)
	}
}

func TestFillPasswords(t *testing.T) {
	in := []domain.Candidate{
		{Email: "a@x.com", Password: "kept"},
		{Email: "b@x.com"},
		{Email: "c@x.com"},
	}
	src := func(email string) (string, error) {
		if email == "b@x.com" {
			return "from-keychain", nil
		}
		return "", errors.New("not found")
	}
	out, missing := FillPasswords(in, src)
	if out[0].Password != "kept" || out[1].Password != "from-keychain" || out[2].Password != "" {
		t.Fatalf("out=%+v", out)
	}
	if len(missing) != 1 || missing[0] != "c@x.com" {
		t.Fatalf("missing=%v", missing)
	}
	if in[1].Password != "" {
		t.Fatal("input slice modified")
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "candidates_template.csv")
	if err := WriteTemplate(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].PreferredLocation != "Remote" {
		t.Fatalf("got %+v", got)
	}
	if err := WriteTemplate(path); err == nil {
		t.Fatal("template overwrote an existing file")
	}
}
