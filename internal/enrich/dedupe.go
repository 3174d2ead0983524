package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/model"
)

// defaultNameSimilarity is the normalized-name similarity at or above
// which two candidates count as the same company.
const defaultNameSimilarity = 0.85

var legalSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s+(inc\.?|llc|ltd\.?|corp\.?|co\.?|company)$`),
	regexp.MustCompile(`\s+(incorporated|limited|corporation)$`),
	regexp.MustCompile(`,\s+(inc\.?|llc|ltd\.?)$`),
}

var nonWordChars = regexp.MustCompile(`[^\w\s]`)

// Deduplicator collapses candidates discovered by multiple connectors into
// one record per company, keyed by domain first and fuzzy name second.
type Deduplicator struct {
	nameSimilarity float64
}

// NewDeduplicator creates a Deduplicator with the default name similarity
// threshold.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{nameSimilarity: defaultNameSimilarity}
}

// Deduplicate returns candidates with duplicates merged into their first
// occurrence. Later duplicates fill fields the first occurrence lacks.
func (d *Deduplicator) Deduplicate(candidates []*model.CandidateCompany) []*model.CandidateCompany {
	seenDomains := make(map[string]*model.CandidateCompany)
	type namedCandidate struct {
		name      string
		candidate *model.CandidateCompany
	}
	var seenNames []namedCandidate
	var result []*model.CandidateCompany

	for _, candidate := range candidates {
		if candidate.Domain != "" {
			candidate.Domain = NormalizeDomain(candidate.Domain)
		}

		if candidate.Domain != "" {
			if existing, ok := seenDomains[candidate.Domain]; ok {
				mergeCandidate(existing, candidate)
				continue
			}
			seenDomains[candidate.Domain] = candidate
		}

		name := normalizeName(candidate.Name)
		duplicate := false
		for _, seen := range seenNames {
			if d.namesMatch(name, seen.name) {
				mergeCandidate(seen.candidate, candidate)
				duplicate = true
				break
			}
		}
		if !duplicate {
			seenNames = append(seenNames, namedCandidate{name: name, candidate: candidate})
			result = append(result, candidate)
		}
	}

	if dropped := len(candidates) - len(result); dropped > 0 {
		zap.L().Debug("enrich: deduplicated candidates",
			zap.Int("input", len(candidates)),
			zap.Int("dropped", dropped),
		)
	}
	return result
}

// NormalizeDomain lowercases a domain and strips scheme, www prefix,
// path, and port.
func NormalizeDomain(domain string) string {
	if domain == "" {
		return ""
	}

	if strings.Contains(domain, "://") {
		if parsed, err := url.Parse(domain); err == nil {
			if parsed.Host != "" {
				domain = parsed.Host
			} else {
				domain = parsed.Path
			}
		}
	}

	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.IndexByte(domain, '/'); idx >= 0 {
		domain = domain[:idx]
	}
	if idx := strings.IndexByte(domain, ':'); idx >= 0 {
		domain = domain[:idx]
	}
	return domain
}

// ExtractDomain pulls the normalized domain out of a URL.
func ExtractDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := parsed.Host
	if host == "" {
		host = strings.SplitN(parsed.Path, "/", 2)[0]
	}
	return NormalizeDomain(host)
}

// normalizeName lowercases a company name, strips legal suffixes and
// punctuation, and collapses whitespace.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range legalSuffixes {
		name = suffix.ReplaceAllString(name, "")
	}
	name = nonWordChars.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}

// namesMatch reports whether two normalized names refer to one company.
func (d *Deduplicator) namesMatch(name1, name2 string) bool {
	if name1 == name2 {
		return true
	}
	if name1 != "" && name2 != "" && (strings.Contains(name2, name1) || strings.Contains(name1, name2)) {
		return true
	}
	return levenshtein.Similarity(name1, name2, levenshtein.NewParams()) >= d.nameSimilarity
}

// mergeCandidate copies fields the existing record lacks from a duplicate.
func mergeCandidate(existing, dup *model.CandidateCompany) {
	if existing.Domain == "" {
		existing.Domain = dup.Domain
	}
	if existing.Website == "" {
		existing.Website = dup.Website
	}
	if existing.Description == "" {
		existing.Description = dup.Description
	}
	if existing.Industry == "" {
		existing.Industry = dup.Industry
	}
	if existing.Location == "" {
		existing.Location = dup.Location
	}
	if existing.EmployeeCount == nil {
		existing.EmployeeCount = dup.EmployeeCount
	}
}
