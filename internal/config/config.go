package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Weights struct {
	Education  float64 `yaml:"education"`
	Trajectory float64 `yaml:"trajectory"`
	Company    float64 `yaml:"company"`
	Skills     float64 `yaml:"skills"`
	Location   float64 `yaml:"location"`
	Tenure     float64 `yaml:"tenure"`
}

func (w Weights) Sum() float64 {
	return w.Education + w.Trajectory + w.Company + w.Skills + w.Location + w.Tenure
}

// Tables are the product-configured rubric data: prestige buckets, company
// tiers, skill synonyms, metro groupings. Versioned data, not code.
type Tables struct {
	EliteInstitutions  []string            `yaml:"elite_institutions"`
	StrongInstitutions []string            `yaml:"strong_institutions"`
	CompanyTiers       map[string][]string `yaml:"company_tiers"`
	SkillSynonyms      map[string][]string `yaml:"skill_synonyms"`
	MetroGroups        [][]string          `yaml:"metro_groups"`
	SeniorityLadder    []string            `yaml:"seniority_ladder"`
}

type SourceConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BaseURL        string  `yaml:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
	// Prior is the normalizer's starting per-field confidence for this
	// source (structured API data > scraped HTML > inferred text).
	Prior float64 `yaml:"prior"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Scoring struct {
		Weights Weights `yaml:"weights"`
		Tables  Tables  `yaml:"tables"`
	} `yaml:"scoring"`

	Cache struct {
		FreshnessSeconds int `yaml:"freshness_seconds"`
		MaxEntries       int `yaml:"max_entries"`
	} `yaml:"cache"`

	Sources struct {
		LinkedIn     SourceConfig `yaml:"linkedin"`
		GitHub       SourceConfig `yaml:"github"`
		Twitter      SourceConfig `yaml:"twitter"`
		PersonalSite SourceConfig `yaml:"personal_site"`
	} `yaml:"sources"`

	Concurrency struct {
		JobWorkers     int `yaml:"job_workers"`
		GlobalFetchCap int `yaml:"global_fetch_cap"`
		ScoringWorkers int `yaml:"scoring_workers"`
	} `yaml:"concurrency"`

	Retry struct {
		MaxAttempts      int `yaml:"max_attempts"`
		InitialBackoffMS int `yaml:"initial_backoff_ms"`
		MaxBackoffMS     int `yaml:"max_backoff_ms"`
	} `yaml:"retry"`

	Output struct {
		TopK int `yaml:"top_k"`
	} `yaml:"output"`

	Outreach struct {
		Enabled bool   `yaml:"enabled"`
		Model   string `yaml:"model"`
	} `yaml:"outreach"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default returns the shipped configuration, written to the data dir on
// first run.
func Default() Config {
	var cfg Config

	cfg.App.Port = 38471
	cfg.App.DataDir = "."

	cfg.Scoring.Weights = Weights{
		Education:  0.20,
		Trajectory: 0.20,
		Company:    0.15,
		Skills:     0.25,
		Location:   0.10,
		Tenure:     0.10,
	}
	cfg.Scoring.Tables = Tables{
		EliteInstitutions: []string{
			"MIT", "Stanford", "Harvard", "Berkeley", "CMU", "Caltech",
			"Princeton", "Yale", "Columbia", "Cornell", "UCLA", "UCSD",
		},
		StrongInstitutions: []string{
			"Georgia Tech", "UIUC", "University of Washington", "UT Austin",
			"University of Michigan", "Waterloo", "ETH Zurich", "Oxford", "Cambridge",
		},
		CompanyTiers: map[string][]string{
			"big_tech": {
				"Google", "Meta", "Apple", "Amazon", "Microsoft", "Netflix",
				"Twitter", "LinkedIn", "Salesforce", "Adobe", "Oracle", "IBM",
				"Intel", "NVIDIA", "AMD", "Qualcomm", "Cisco", "VMware",
			},
			"unicorn": {
				"Stripe", "Databricks", "OpenAI", "Anthropic", "Canva", "Figma",
			},
		},
		SkillSynonyms: map[string][]string{
			"kubernetes":       {"k8s"},
			"postgresql":       {"postgres"},
			"javascript":       {"js", "ecmascript"},
			"typescript":       {"ts"},
			"golang":           {"go"},
			"machine learning": {"ml"},
		},
		MetroGroups: [][]string{
			{"San Francisco", "Oakland", "Berkeley", "San Jose", "Palo Alto", "Mountain View"},
			{"New York", "Brooklyn", "Jersey City"},
			{"Dallas", "Fort Worth", "Plano", "Irving"},
			{"Seattle", "Bellevue", "Redmond"},
		},
		SeniorityLadder: []string{
			"intern", "junior", "associate", "mid", "senior", "staff",
			"principal", "lead", "manager", "director", "vp",
		},
	}

	cfg.Cache.FreshnessSeconds = 3600
	cfg.Cache.MaxEntries = 4096

	defaultSource := func(base string, prior float64) SourceConfig {
		return SourceConfig{
			Enabled:        true,
			BaseURL:        base,
			RequestsPerSec: 1,
			Burst:          5,
			Prior:          prior,
		}
	}
	cfg.Sources.LinkedIn = defaultSource("https://api.linkedin.example.com", 0.90)
	cfg.Sources.GitHub = defaultSource("https://api.github.com", 0.85)
	cfg.Sources.Twitter = defaultSource("https://api.twitter.com", 0.50)
	cfg.Sources.PersonalSite = defaultSource("", 0.60)

	cfg.Concurrency.JobWorkers = 10
	cfg.Concurrency.GlobalFetchCap = 8
	cfg.Concurrency.ScoringWorkers = 16

	cfg.Retry.MaxAttempts = 4
	cfg.Retry.InitialBackoffMS = 200
	cfg.Retry.MaxBackoffMS = 5000

	cfg.Output.TopK = 5

	cfg.Outreach.Enabled = true
	cfg.Outreach.Model = "gemini-2.0-flash"

	return cfg
}
