package core

import "time"

// CurrentAuditor resolves the username to stamp on audit fields.
//
// The request-handling layer resolves the principal once and passes it here
// explicitly. A nil principal means no authenticated user is present.
func CurrentAuditor(p *Principal) (string, bool) {
	if p == nil || p.Username == "" {
		return "", false
	}
	return p.Username, true
}

// StampCreated fills the created and modified fields. fallback is used when no
// principal is present, e.g. self-registration where the new account is its own creator.
func (f *AuditFields) StampCreated(p *Principal, fallback string, now time.Time) {
	auditor, ok := CurrentAuditor(p)
	if !ok {
		auditor = fallback
	}
	f.CreatedAt = now
	f.CreatedBy = auditor
	f.ModifiedAt = now
	f.ModifiedBy = auditor
}

// StampModified fills the modified fields. Without a principal the previous
// modifier is kept and only the timestamp moves.
func (f *AuditFields) StampModified(p *Principal, now time.Time) {
	if auditor, ok := CurrentAuditor(p); ok {
		f.ModifiedBy = auditor
	}
	f.ModifiedAt = now
}
