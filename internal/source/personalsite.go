package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/normalize"
)

// PersonalSite scrapes a candidate's own website. There is no directory
// to search; identities are URLs discovered on other sources' profiles.
type PersonalSite struct {
	cfg config.SourceConfig
	hc  *http.Client
	lim *Limiter
}

func NewPersonalSite(cfg config.SourceConfig, lim *Limiter) *PersonalSite {
	return &PersonalSite{cfg: cfg, hc: newHTTPClient(), lim: lim}
}

func (s *PersonalSite) Name() domain.Source { return domain.SourcePersonalSite }

func (s *PersonalSite) Search(ctx context.Context, _ domain.JobRequirement) ([]string, error) {
	return nil, nil
}

func (s *PersonalSite) FetchProfile(ctx context.Context, identity string) (domain.RawProfile, error) {
	u := identity
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}

	if s.lim != nil {
		if err := s.lim.Wait(ctx, s.Name()); err != nil {
			return domain.RawProfile{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RawProfile{}, fmt.Errorf("personal_site request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := s.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RawProfile{}, ctx.Err()
		}
		return domain.RawProfile{}, &domain.TransientFetchError{Source: s.Name(), Err: err}
	}
	defer res.Body.Close()
	if err := mapStatus(s.Name(), res.StatusCode); err != nil {
		return domain.RawProfile{}, err
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return domain.RawProfile{}, fmt.Errorf("personal_site parse html: %w", err)
	}

	raw := domain.RawProfile{
		Source:    s.Name(),
		Identity:  identity,
		FetchedAt: time.Now().UTC(),
	}

	raw.Name = normalize.CleanText(doc.Find("h1").First().Text())
	if raw.Name == "" {
		if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			raw.Name = normalize.CleanText(t)
		}
	}
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		raw.Headline = normalize.CleanText(d)
	}
	if raw.Headline == "" {
		raw.Headline = normalize.CleanText(doc.Find("h2").First().Text())
	}

	raw.Skills = scrapeSkills(doc)
	raw.Experience = scrapeExperience(doc)
	raw.Education = scrapeEducation(doc)

	return raw, nil
}

func scrapeSkills(doc *goquery.Document) []string {
	var out []string
	seen := map[string]bool{}
	doc.Find("#skills li, .skills li, ul.skill-list li").Each(func(_ int, sel *goquery.Selection) {
		s := strings.ToLower(normalize.CleanText(sel.Text()))
		if s != "" && len(s) < 40 && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	})
	return out
}

// scrapeExperience reads "Title at Company (2021 - present)" style entries
// under an experience heading. Personal sites are freeform; anything that
// doesn't split cleanly is skipped rather than guessed.
func scrapeExperience(doc *goquery.Document) []domain.RawExperience {
	var out []domain.RawExperience
	doc.Find("#experience li, .experience li, section.experience article").Each(func(_ int, sel *goquery.Selection) {
		text := normalize.CleanText(sel.Text())
		title, company, start, end := splitRole(text)
		if company == "" {
			return
		}
		out = append(out, domain.RawExperience{
			Company: company,
			Title:   title,
			Start:   start,
			End:     end,
		})
	})
	return out
}

func scrapeEducation(doc *goquery.Document) []domain.RawEducation {
	var out []domain.RawEducation
	doc.Find("#education li, .education li").Each(func(_ int, sel *goquery.Selection) {
		text := normalize.CleanText(sel.Text())
		if text == "" {
			return
		}
		inst, years := text, ""
		if open := strings.LastIndex(text, "("); open > 0 && strings.HasSuffix(text, ")") {
			inst = normalize.CleanText(text[:open])
			years = strings.Trim(text[open:], "() ")
		}
		if inst == "" {
			return
		}
		e := domain.RawEducation{Institution: inst, Years: years}
		if i := strings.Index(inst, ","); i > 0 {
			e.Institution = normalize.CleanText(inst[:i])
			e.Degree = normalize.CleanText(inst[i+1:])
		}
		out = append(out, e)
	})
	return out
}

func splitRole(text string) (title, company, start, end string) {
	if open := strings.LastIndex(text, "("); open > 0 && strings.HasSuffix(text, ")") {
		span := strings.Trim(text[open:], "() ")
		span = strings.ReplaceAll(span, "–", "-")
		text = normalize.CleanText(text[:open])
		if dash := strings.Index(span, "-"); dash >= 0 {
			start = normalize.CleanText(span[:dash])
			end = normalize.CleanText(span[dash+1:])
		} else {
			start = span
		}
	}
	if i := strings.Index(text, " at "); i > 0 {
		title = normalize.CleanText(text[:i])
		company = normalize.CleanText(text[i+4:])
		return
	}
	if i := strings.Index(text, ", "); i > 0 {
		title = normalize.CleanText(text[:i])
		company = normalize.CleanText(text[i+2:])
	}
	return
}
