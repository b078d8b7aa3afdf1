// Package categorize assigns normalized records to the fixed analysis
// categories.
package categorize

import "github.com/moxie99/ai-reputation/pkg/person"

// platformsByCategory lists which platforms feed each category. The
// credibility category has no entry; it receives every record.
var platformsByCategory = map[person.CategoryKey]map[string]bool{
	person.CategoryProfessionalConduct: {
		person.PlatformLinkedIn: true,
		person.PlatformGitHub:   true,
	},
	person.CategoryPublicStatements: {
		person.PlatformTwitter: true,
		person.PlatformReddit:  true,
		person.PlatformYouTube: true,
	},
	person.CategorySocialBehavior: {
		person.PlatformReddit:  true,
		person.PlatformTwitter: true,
		person.PlatformYouTube: true,
	},
	person.CategoryControversies: {
		person.PlatformGoogleNews:   true,
		person.PlatformGoogleSearch: true,
		person.PlatformPerplexity:   true,
	},
	person.CategoryExpertise: {
		person.PlatformGitHub:   true,
		person.PlatformLinkedIn: true,
		person.PlatformYouTube:  true,
	},
}

// statementTypes restricts the public-statements category to authored
// content; profiles on those platforms say nothing about what the person
// states publicly.
var statementTypes = map[person.RecordType]bool{
	person.TypePost:    true,
	person.TypeComment: true,
	person.TypeVideo:   true,
}

// Categorize buckets records into every category they belong to. A record
// can land in several categories; every record lands in credibility. The
// result holds an entry for each category key even when empty.
func Categorize(results []person.RetrievalResult) map[person.CategoryKey][]person.RetrievalResult {
	buckets := make(map[person.CategoryKey][]person.RetrievalResult, len(person.CategoryKeys()))
	for _, key := range person.CategoryKeys() {
		buckets[key] = nil
	}

	for _, r := range results {
		for _, key := range person.CategoryKeys() {
			if Matches(key, r) {
				buckets[key] = append(buckets[key], r)
			}
		}
	}
	return buckets
}

// Matches reports whether a record belongs to a category.
func Matches(key person.CategoryKey, r person.RetrievalResult) bool {
	if key == person.CategoryCredibility {
		return true
	}
	platforms, ok := platformsByCategory[key]
	if !ok || !platforms[r.Platform] {
		return false
	}
	if key == person.CategoryPublicStatements {
		return statementTypes[r.Type]
	}
	return true
}
