// engine/internal/config/config.go
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir    string `yaml:"data_dir"`
		RosterPath string `yaml:"roster_path"`
		LedgerPath string `yaml:"ledger_path"`
		BackupDir  string `yaml:"backup_dir"`
		LogToFile  bool   `yaml:"log_to_file"`
	} `yaml:"app"`

	Search struct {
		Keywords                    string `yaml:"keywords"`  // comma separated
		Locations                   string `yaml:"locations"` // comma separated
		MaxApplicationsPerCandidate int    `yaml:"max_applications_per_candidate"`
		MaxApplicationsPerRun       int    `yaml:"max_applications_per_run"` // 0 = unlimited
	} `yaml:"search"`

	Pacing struct {
		ActionMin         time.Duration `yaml:"action_min"`
		ActionMax         time.Duration `yaml:"action_max"`
		CandidateMin      time.Duration `yaml:"candidate_min"`
		CandidateMax      time.Duration `yaml:"candidate_max"`
		NavigationsPerSec float64       `yaml:"navigations_per_sec"`
		Burst             int           `yaml:"burst"`
	} `yaml:"pacing"`

	Browser struct {
		Driver    string `yaml:"driver"` // chrome | static
		Headless  bool   `yaml:"headless"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"browser"`

	Timeouts struct {
		Explicit time.Duration `yaml:"explicit"`
		Probe    time.Duration `yaml:"probe"`
		Confirm  time.Duration `yaml:"confirm"`
		Login    time.Duration `yaml:"login"`
	} `yaml:"timeouts"`

	Ledger struct {
		Backend     string `yaml:"backend"` // csv | sqlite
		RetryFailed bool   `yaml:"retry_failed"`
	} `yaml:"ledger"`

	Site Site `yaml:"site"`
}

// Site holds every selector the engine touches on the target board.
// Selectors starting with "/" or "(" are XPath, everything else is CSS.
type Site struct {
	BaseURL string `yaml:"base_url"`

	SignIn        string   `yaml:"sign_in"`
	EmailInput    string   `yaml:"email_input"`
	PasswordInput string   `yaml:"password_input"`
	LoginButton   string   `yaml:"login_button"`
	LoggedIn      []string `yaml:"logged_in"`
	Logout        []string `yaml:"logout"`

	KeywordInput  string `yaml:"keyword_input"`
	LocationInput string `yaml:"location_input"`
	SearchButton  string `yaml:"search_button"`

	ListingEntry string   `yaml:"listing_entry"`
	EntryLink    string   `yaml:"entry_link"`
	ApplyButtons []string `yaml:"apply_buttons"`
	BackToSearch []string `yaml:"back_to_search"`

	ResumeOption  string   `yaml:"resume_option"`
	LinkedInInput string   `yaml:"linkedin_input"`
	PhoneInput    string   `yaml:"phone_input"`
	Qualification []string `yaml:"qualification_no"`
	SubmitButton  string   `yaml:"submit_button"`
}

func Default() Config {
	var cfg Config
	cfg.App.DataDir = "."
	cfg.App.RosterPath = "data/candidates.csv"
	cfg.App.LedgerPath = "data/applied_jobs.csv"
	cfg.App.BackupDir = "backups"
	cfg.App.LogToFile = true

	cfg.Search.Keywords = "Software Engineer"
	cfg.Search.Locations = "Remote"
	cfg.Search.MaxApplicationsPerCandidate = 10

	cfg.Pacing.ActionMin = 2 * time.Second
	cfg.Pacing.ActionMax = 5 * time.Second
	cfg.Pacing.CandidateMin = 30 * time.Second
	cfg.Pacing.CandidateMax = 60 * time.Second
	cfg.Pacing.NavigationsPerSec = 1
	cfg.Pacing.Burst = 2

	cfg.Browser.Driver = "chrome"
	cfg.Browser.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	cfg.Timeouts.Explicit = 30 * time.Second
	cfg.Timeouts.Probe = 5 * time.Second
	cfg.Timeouts.Confirm = 10 * time.Second
	cfg.Timeouts.Login = 30 * time.Second

	cfg.Ledger.Backend = "csv"

	cfg.Site = DefaultSite()
	return cfg
}

func DefaultSite() Site {
	return Site{
		BaseURL: "https://jobs.insightglobal.com/",

		SignIn:        `a[href='https://jobs.insightglobal.com/users/login.aspx']`,
		EmailInput:    "#txtUser",
		PasswordInput: "#txtPassword",
		LoginButton:   "#ContentPlaceHolder1_LoginControl1_cmdOK",
		LoggedIn: []string{
			"a[href*='logout']",
			"//a[contains(text(),'Sign Out')]",
		},
		Logout: []string{
			"a[href='/?logout=1']",
			"a[href*='logout']",
			"//a[contains(text(),'Logout')]",
			"//a[contains(text(),'Sign Out')]",
		},

		KeywordInput:  "#textinput",
		LocationInput: "#locationinput",
		SearchButton:  "#homesearch",

		ListingEntry: "div.job-title",
		EntryLink:    "a",
		ApplyButtons: []string{
			"a.quick-apply",
			`//a[contains(text(), "Apply")]`,
			`//button[contains(text(), "Apply")]`,
			"input[value='Apply']",
			"a[href*='apply']",
		},
		BackToSearch: []string{
			"//a[contains(@href, '/results.aspx') and contains(text(), 'Back to Search')]",
			"a[href*='/results.aspx']",
		},

		ResumeOption:  "#ContentPlaceHolder1_grdItem_btnSelect_0",
		LinkedInInput: "#ContentPlaceHolder1_txtLinkedInUrl",
		PhoneInput:    "#ContentPlaceHolder1_txtPhone2",
		Qualification: []string{
			"#ContentPlaceHolder1_chkMinReq_1",
			`input[name='ctl00$ContentPlaceHolder1$chkMinReq'][value='No']`,
		},
		SubmitButton: "#ContentPlaceHolder1_cmdApply",
	}
}

// Load reads path over the defaults. A missing file is not an error: the
// engine runs with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// SplitList splits a comma separated config value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) KeywordList() []string  { return SplitList(c.Search.Keywords) }
func (c Config) LocationList() []string { return SplitList(c.Search.Locations) }
