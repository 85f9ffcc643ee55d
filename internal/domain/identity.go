package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Identity is the stable key of one task instance. It is a pure function of
// (provider id, context): the same provider and context always encode to the
// same identity, so existence checks never need a side table.
type Identity string

type ContextKind string

const (
	KindSingleton ContextKind = "singleton"
	KindPeriodic  ContextKind = "periodic"
	KindEntity    ContextKind = "entity"
)

// TaskContext is the disambiguating part of an identity, tagged by kind.
type TaskContext struct {
	Kind   ContextKind `json:"kind"`
	Bucket string      `json:"bucket,omitempty"` // ISO week, e.g. "2025-W10"
	Target string      `json:"target,omitempty"` // opaque entity reference
}

func Singleton() TaskContext {
	return TaskContext{Kind: KindSingleton}
}

func Weekly(t time.Time) TaskContext {
	return TaskContext{Kind: KindPeriodic, Bucket: WeekBucket(t)}
}

func Entity(target string) TaskContext {
	return TaskContext{Kind: KindEntity, Target: target}
}

// WeekBucket returns the canonical ISO year-week bucket for t. Two times in
// the same ISO week always map to the same bucket.
func WeekBucket(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

var (
	providerIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	bucketPattern     = regexp.MustCompile(`^\d{4}-W\d{2}$`)

	// Pre-versioning formats: "update-core-2025W10", "review-post-123".
	legacyWeekPattern   = regexp.MustCompile(`^(.+)-(\d{4})W(\d{2})$`)
	legacyTargetPattern = regexp.MustCompile(`^(.+)-(\d+)$`)
)

func ValidProviderID(id string) bool {
	return providerIDPattern.MatchString(id)
}

// EncodeIdentity produces the canonical identity for a provider and context.
//
//	singleton: site-icon
//	periodic:  update-core/week/2025-W10
//	entity:    review-post/target/42
//
// Provider ids cannot contain "/" and targets are path-escaped, so distinct
// contexts never collide.
func EncodeIdentity(providerID string, ctx TaskContext) (Identity, error) {
	if !ValidProviderID(providerID) {
		return "", fmt.Errorf("invalid provider id %q", providerID)
	}
	switch ctx.Kind {
	case KindSingleton:
		return Identity(providerID), nil
	case KindPeriodic:
		if !bucketPattern.MatchString(ctx.Bucket) {
			return "", fmt.Errorf("invalid week bucket %q", ctx.Bucket)
		}
		return Identity(providerID + "/week/" + ctx.Bucket), nil
	case KindEntity:
		if ctx.Target == "" {
			return "", fmt.Errorf("entity context requires a target")
		}
		return Identity(providerID + "/target/" + url.PathEscape(ctx.Target)), nil
	default:
		return "", fmt.Errorf("unknown context kind %q", ctx.Kind)
	}
}

// DecodeIdentity recovers the provider id and context from an identity.
// Canonical identities decode exactly. Legacy concatenated identities decode
// on a best-effort basis: at minimum the provider id is recovered, richer
// context may be lost. Identities matching neither format return
// ErrIdentityDecode and must be treated as opaque history.
func DecodeIdentity(id Identity) (string, TaskContext, error) {
	s := string(id)
	if s == "" {
		return "", TaskContext{}, fmt.Errorf("%w: empty identity", ErrIdentityDecode)
	}

	parts := strings.Split(s, "/")
	switch {
	case len(parts) == 1:
		return decodeLegacy(s)
	case len(parts) == 3 && parts[1] == "week":
		if !ValidProviderID(parts[0]) || !bucketPattern.MatchString(parts[2]) {
			return "", TaskContext{}, fmt.Errorf("%w: %q", ErrIdentityDecode, s)
		}
		return parts[0], TaskContext{Kind: KindPeriodic, Bucket: parts[2]}, nil
	case len(parts) == 3 && parts[1] == "target":
		target, err := url.PathUnescape(parts[2])
		if err != nil || !ValidProviderID(parts[0]) || target == "" {
			return "", TaskContext{}, fmt.Errorf("%w: %q", ErrIdentityDecode, s)
		}
		return parts[0], TaskContext{Kind: KindEntity, Target: target}, nil
	default:
		return "", TaskContext{}, fmt.Errorf("%w: %q", ErrIdentityDecode, s)
	}
}

func decodeLegacy(s string) (string, TaskContext, error) {
	if m := legacyWeekPattern.FindStringSubmatch(s); m != nil && ValidProviderID(m[1]) {
		return m[1], TaskContext{Kind: KindPeriodic, Bucket: m[2] + "-W" + m[3]}, nil
	}
	if m := legacyTargetPattern.FindStringSubmatch(s); m != nil && ValidProviderID(m[1]) {
		return m[1], TaskContext{Kind: KindEntity, Target: m[2]}, nil
	}
	if ValidProviderID(s) {
		return s, TaskContext{Kind: KindSingleton}, nil
	}
	return "", TaskContext{}, fmt.Errorf("%w: %q", ErrIdentityDecode, s)
}

// Canonical reports whether id is already in the canonical encoding. Legacy
// identities decode but re-encode differently; the migration pass uses this
// to find records that need rewriting.
func (id Identity) Canonical() bool {
	providerID, ctx, err := DecodeIdentity(id)
	if err != nil {
		return false
	}
	canonical, err := EncodeIdentity(providerID, ctx)
	if err != nil {
		return false
	}
	return canonical == id
}
