package valueobjects

import (
	"regexp"
	"strings"

	pkgerrors "sitemap-sync/pkg/errors"
)

// FallbackSlug is used when a label yields no usable characters
const FallbackSlug = "untitled"

// DefaultMaxSlugLength bounds a single path segment
const DefaultMaxSlugLength = 100

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// GenerateSlug derives a URL segment from a label: lowercase, every run of
// non-alphanumerics collapsed to one hyphen, hyphens trimmed at both ends.
func GenerateSlug(label string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(label), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return FallbackSlug
	}
	return slug
}

// ValidateSlug checks a slug against the segment grammar
func ValidateSlug(slug string, maxLength int) error {
	if maxLength <= 0 {
		maxLength = DefaultMaxSlugLength
	}
	switch {
	case slug == "":
		return pkgerrors.NewInvalidSlug(slug, "slug is required")
	case len(slug) > maxLength:
		return pkgerrors.NewInvalidSlug(slug, "slug is too long").WithDetail("max_length", maxLength)
	case !slugPattern.MatchString(slug):
		return pkgerrors.NewInvalidSlug(slug, "only lowercase letters, digits and single hyphens are allowed")
	}
	return nil
}

// JoinPath appends a slug to a parent path
func JoinPath(parentPath, slug string) string {
	if parentPath == "" {
		return slug
	}
	return parentPath + "/" + slug
}
