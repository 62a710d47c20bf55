package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
)

func noTokens(domain.Source) (string, error) { return "", nil }

func TestLinkedInSearchAndFetch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/v2/people/search":
			w.Write([]byte(`{"results":[{"public_id":"jane-doe"},{"public_id":"john-roe"}]}`))
		case "/v2/people/jane-doe":
			w.Write([]byte(`{
				"full_name": "Jane Doe",
				"headline": "Staff Engineer",
				"location": "Austin, TX",
				"positions": [{"company": "Acme Inc", "title": "Staff Engineer", "start": "2023-06"}],
				"skills": ["Python", "Go"],
				"websites": ["https://janedoe.dev"]
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewLinkedIn(config.SourceConfig{BaseURL: srv.URL}, nil, func(domain.Source) (string, error) {
		return "tok-123", nil
	})

	ids, err := c.Search(context.Background(), domain.JobRequirement{
		Title:          "Staff Engineer",
		RequiredSkills: []string{"python"},
		Locations:      []string{"Austin"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"jane-doe", "john-roe"}) {
		t.Fatalf("ids: %v", ids)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("token not attached, got %q", gotAuth)
	}

	raw, err := c.FetchProfile(context.Background(), "jane-doe")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if raw.Source != domain.SourceLinkedIn || raw.Name != "Jane Doe" {
		t.Fatalf("profile: %+v", raw)
	}
	if len(raw.Experience) != 1 || raw.Experience[0].Company != "Acme Inc" {
		t.Fatalf("experience: %+v", raw.Experience)
	}
	if !reflect.DeepEqual(raw.Links, []string{"https://janedoe.dev"}) {
		t.Fatalf("links should carry the advertised website: %v", raw.Links)
	}
	if raw.FetchedAt.IsZero() {
		t.Fatal("fetched_at must be stamped")
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		code      int
		notFound  bool
		retryable bool
	}{
		{http.StatusNotFound, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusForbidden, false, false},
	}
	for _, tc := range cases {
		code := tc.code
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))
		c := NewLinkedIn(config.SourceConfig{BaseURL: srv.URL}, nil, noTokens)

		_, err := c.FetchProfile(context.Background(), "nobody")
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", code)
		}
		if got := errors.Is(err, domain.ErrNotFound); got != tc.notFound {
			t.Fatalf("status %d: ErrNotFound=%v, want %v (err=%v)", code, got, tc.notFound, err)
		}
		if got := domain.Retryable(err); got != tc.retryable {
			t.Fatalf("status %d: Retryable=%v, want %v (err=%v)", code, got, tc.retryable, err)
		}
	}
}

func TestGitHubSkillsFromRepos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/janedoe":
			w.Write([]byte(`{"login":"janedoe","name":"Jane Doe","bio":"distributed systems","company":"@acme","location":"Austin, TX","blog":"https://janedoe.dev"}`))
		case "/users/janedoe/repos":
			w.Write([]byte(`[
				{"language":"Go","topics":["kubernetes"]},
				{"language":"Python"},
				{"language":"JavaScript","fork":true}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewGitHub(config.SourceConfig{BaseURL: srv.URL}, nil, noTokens)
	raw, err := c.FetchProfile(context.Background(), "janedoe")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	// forked repos don't count as skill evidence
	if !reflect.DeepEqual(raw.Skills, []string{"go", "kubernetes", "python"}) {
		t.Fatalf("skills: %v", raw.Skills)
	}
	if len(raw.Experience) != 1 || raw.Experience[0].Company != "acme" {
		t.Fatalf("company from profile should drop the @: %+v", raw.Experience)
	}
}

func TestPersonalSiteScrape(t *testing.T) {
	const page = `<!doctype html><html><head>
		<meta name="description" content="Staff engineer building data platforms.">
	</head><body>
		<h1>Jane Doe</h1>
		<section id="experience"><ul>
			<li>Staff Engineer at Acme Incorporated (2023 - present)</li>
			<li>Engineer at Initech (2019 - 2023)</li>
			<li>hello world</li>
		</ul></section>
		<section id="education"><ul>
			<li>MIT, BS Computer Science (2014-2018)</li>
		</ul></section>
		<section id="skills"><ul><li>Go</li><li>Python</li><li>Go</li></ul></section>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	c := NewPersonalSite(config.SourceConfig{}, nil)
	raw, err := c.FetchProfile(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if raw.Name != "Jane Doe" {
		t.Fatalf("name: %q", raw.Name)
	}
	if raw.Headline != "Staff engineer building data platforms." {
		t.Fatalf("headline: %q", raw.Headline)
	}
	if !reflect.DeepEqual(raw.Skills, []string{"go", "python"}) {
		t.Fatalf("skills should dedupe: %v", raw.Skills)
	}
	if len(raw.Experience) != 2 {
		t.Fatalf("unparseable entries must be skipped, got %+v", raw.Experience)
	}
	first := raw.Experience[0]
	if first.Company != "Acme Incorporated" || first.Title != "Staff Engineer" ||
		first.Start != "2023" || first.End != "present" {
		t.Fatalf("experience: %+v", first)
	}
	if len(raw.Education) != 1 || raw.Education[0].Institution != "MIT" || raw.Education[0].Years != "2014-2018" {
		t.Fatalf("education: %+v", raw.Education)
	}
}

func TestRegistryEnablesConfiguredSources(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Twitter.Enabled = false

	reg := NewRegistry(cfg, NewLimiter(cfg), noTokens)

	if _, ok := reg.Get(domain.SourceTwitter); ok {
		t.Fatal("disabled source must not register")
	}
	for _, src := range []domain.Source{domain.SourceLinkedIn, domain.SourceGitHub, domain.SourcePersonalSite} {
		if _, ok := reg.Get(src); !ok {
			t.Fatalf("%s should be registered", src)
		}
	}
}
