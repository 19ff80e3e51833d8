package browsertest

import (
	"jobbot-engine/internal/config"
)

// Job is one posting on a fake board.
type Job struct {
	Key   string // unique page key; defaults to ID
	ID    string // rendered as /job/<ID>/ in the entry link when set
	Title string
	Attrs map[string]string // attributes on the listing entry itself

	NoApply       bool // detail page has no apply control
	NoSubmit      bool // form has no submit control
	SubmitErr     error
	NoReturnLink  bool // confirmation page lacks "back to search"
	OptionalSteps bool // form renders resume/linkedin/phone/qualification controls
}

func (j Job) key() string {
	if j.Key != "" {
		return j.Key
	}
	return j.ID
}

type Search struct {
	Keyword  string
	Location string
}

// Board is a fake job board laid out with the selectors of a config.Site.
// OnClick handlers run under the Fake lock and must not call Fake methods.
type Board struct {
	*Fake
	Site config.Site

	// Listing returns the postings for a search; re-read on every FindAll.
	Listing func(s Search) []Job
	// Accept decides whether credentials log in.
	Accept func(email, password string) bool

	LoggedIn  bool
	Logins    int
	Logouts   int
	Searches  []Search
	Submitted []string // job keys whose submit was clicked

	last Search
}

func NewBoard(site config.Site) *Board {
	b := &Board{
		Fake:   New(),
		Site:   site,
		Accept: func(string, string) bool { return true },
	}
	b.Routes = func(url string) string {
		if url == site.BaseURL {
			return "home"
		}
		return url
	}
	b.build()
	return b
}

func (b *Board) withSession(p *Page) *Page {
	marker := &Node{Name: "logged-in-marker"}
	for _, sel := range b.Site.LoggedIn {
		p.Dynamic[sel] = func() []*Node {
			if b.LoggedIn {
				return []*Node{marker}
			}
			return nil
		}
	}
	logout := &Node{Name: "logout", OnClick: func(f *Fake) {
		b.LoggedIn = false
		b.Logouts++
		f.Go("home")
	}}
	for _, sel := range b.Site.Logout {
		p.Dynamic[sel] = func() []*Node {
			if b.LoggedIn {
				return []*Node{logout}
			}
			return nil
		}
	}
	return b.AddPage(p)
}

func (b *Board) build() {
	s := b.Site

	home := b.withSession(NewPage("home"))
	home.Add(s.SignIn, &Node{Name: "sign-in", OnClick: func(f *Fake) { f.Go("login") }})
	kw := home.Add(s.KeywordInput, &Node{Name: "keyword"})
	loc := home.Add(s.LocationInput, &Node{Name: "location"})
	home.Add(s.SearchButton, &Node{Name: "search", OnClick: func(f *Fake) {
		b.last = Search{Keyword: kw.Value, Location: loc.Value}
		b.Searches = append(b.Searches, b.last)
		f.Go("results")
	}})

	login := b.withSession(NewPage("login"))
	email := login.Add(s.EmailInput, &Node{Name: "email"})
	pass := login.Add(s.PasswordInput, &Node{Name: "password"})
	login.Add(s.LoginButton, &Node{Name: "login", OnClick: func(f *Fake) {
		if b.Accept(email.Value, pass.Value) {
			b.LoggedIn = true
			b.Logins++
		}
		f.Go("home")
	}})

	results := b.withSession(NewPage("results"))
	results.Dynamic[s.ListingEntry] = func() []*Node {
		if b.Listing == nil {
			return nil
		}
		var out []*Node
		for _, j := range b.Listing(b.last) {
			out = append(out, b.entry(j))
		}
		return out
	}

	confirm := b.withSession(NewPage("confirm"))
	if len(s.BackToSearch) > 0 {
		confirm.Add(s.BackToSearch[0], &Node{Name: "back-to-search", OnClick: func(f *Fake) { f.Go("results") }})
	}
	b.withSession(NewPage("confirm-bare"))
}

func (b *Board) entry(j Job) *Node {
	s := b.Site
	n := &Node{Name: "entry:" + j.key(), Attrs: j.Attrs, Children: map[string]*Node{}}
	href := "/detail/" + j.key()
	if j.ID != "" {
		href = "https://jobs.example.com/job/" + j.ID + "/"
	}
	n.Children[s.EntryLink] = &Node{Name: "link:" + j.key(), Text: j.Title, Attrs: map[string]string{"href": href}}

	detail := "detail:" + j.key()
	form := "form:" + j.key()
	n.OnClick = func(f *Fake) { f.Go(detail) }

	if _, ok := b.Pages[detail]; !ok {
		dp := b.withSession(NewPage(detail))
		if !j.NoApply && len(s.ApplyButtons) > 0 {
			dp.Add(s.ApplyButtons[0], &Node{Name: "apply:" + j.key(), OnClick: func(f *Fake) { f.Go(form) }})
		}

		fp := b.withSession(NewPage(form))
		if j.OptionalSteps {
			fp.Add(s.ResumeOption, &Node{Name: "resume"})
			fp.Add(s.LinkedInInput, &Node{Name: "linkedin"})
			fp.Add(s.PhoneInput, &Node{Name: "phone"})
			if len(s.Qualification) > 0 {
				fp.Add(s.Qualification[0], &Node{Name: "qualification-no"})
			}
		}
		if !j.NoSubmit {
			next := "confirm"
			if j.NoReturnLink {
				next = "confirm-bare"
			}
			key := j.key()
			fp.Add(s.SubmitButton, &Node{Name: "submit:" + key, ClickErr: j.SubmitErr, OnClick: func(f *Fake) {
				b.Submitted = append(b.Submitted, key)
				f.Go(next)
			}})
		}
	}
	return n
}
