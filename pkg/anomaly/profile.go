package anomaly

import "time"

// FailedLogin is one failed authentication attempt inside the sliding window.
type FailedLogin struct {
	At       time.Time `json:"at"`
	SourceIP string    `json:"source_ip"`
}

// IPSighting records a source IP seen on a login attempt.
type IPSighting struct {
	SourceIP string    `json:"source_ip"`
	At       time.Time `json:"at"`
}

// Profile is the per-user behavioral state. It is created lazily on the first
// recorded event and mutated only while the engine holds the user's keyed lock.
type Profile struct {
	UserID        string `json:"user_id"`
	IdentityLabel string `json:"identity_label,omitempty"`

	RiskScore       float64   `json:"risk_score"`
	LastScoreUpdate time.Time `json:"last_score_update"`

	Locked        bool      `json:"locked"`
	LockExpiresAt time.Time `json:"lock_expires_at,omitempty"`

	FailedLogins []FailedLogin `json:"failed_logins,omitempty"`
	RequestTimes []time.Time   `json:"request_times,omitempty"`
	RecentIPs    []IPSighting  `json:"recent_ips,omitempty"`

	LastSeen time.Time `json:"last_seen"`
}

func newProfile(userID, identityLabel string, now time.Time) *Profile {
	return &Profile{
		UserID:          userID,
		IdentityLabel:   identityLabel,
		LastScoreUpdate: now,
		LastSeen:        now,
	}
}

// pruneFailedLogins drops failed attempts older than the window. Histories are
// append-only in time order, so a single cut point is enough.
func (p *Profile) pruneFailedLogins(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(p.FailedLogins) && !p.FailedLogins[i].At.After(cutoff) {
		i++
	}
	if i > 0 {
		p.FailedLogins = append(p.FailedLogins[:0], p.FailedLogins[i:]...)
	}
}

func (p *Profile) pruneRequestTimes(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(p.RequestTimes) && !p.RequestTimes[i].After(cutoff) {
		i++
	}
	if i > 0 {
		p.RequestTimes = append(p.RequestTimes[:0], p.RequestTimes[i:]...)
	}
}

func (p *Profile) pruneRecentIPs(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(p.RecentIPs) && !p.RecentIPs[i].At.After(cutoff) {
		i++
	}
	if i > 0 {
		p.RecentIPs = append(p.RecentIPs[:0], p.RecentIPs[i:]...)
	}
}

// knownIP reports whether sourceIP appears among the remembered sightings.
// Callers prune first so only in-window entries are consulted.
func (p *Profile) knownIP(sourceIP string) bool {
	for _, s := range p.RecentIPs {
		if s.SourceIP == sourceIP {
			return true
		}
	}
	return false
}

// clone returns a deep copy so stores never hand out aliased history slices.
func (p *Profile) clone() *Profile {
	cp := *p
	if p.FailedLogins != nil {
		cp.FailedLogins = append([]FailedLogin(nil), p.FailedLogins...)
	}
	if p.RequestTimes != nil {
		cp.RequestTimes = append([]time.Time(nil), p.RequestTimes...)
	}
	if p.RecentIPs != nil {
		cp.RecentIPs = append([]IPSighting(nil), p.RecentIPs...)
	}
	return &cp
}

// Snapshot is the read-only diagnostic view returned by GetStatus.
type Snapshot struct {
	UserID          string     `json:"user_id"`
	IdentityLabel   string     `json:"identity_label,omitempty"`
	RiskScore       float64    `json:"risk_score"`
	Locked          bool       `json:"locked"`
	LockExpiresAt   *time.Time `json:"lock_expires_at,omitempty"`
	FailedLogins    int        `json:"failed_logins"`
	RecentRequests  int        `json:"recent_requests"`
	KnownIPs        []string   `json:"known_ips,omitempty"`
	LastScoreUpdate time.Time  `json:"last_score_update"`
	LastSeen        time.Time  `json:"last_seen"`
}

func (p *Profile) snapshot() *Snapshot {
	s := &Snapshot{
		UserID:          p.UserID,
		IdentityLabel:   p.IdentityLabel,
		RiskScore:       p.RiskScore,
		Locked:          p.Locked,
		FailedLogins:    len(p.FailedLogins),
		RecentRequests:  len(p.RequestTimes),
		LastScoreUpdate: p.LastScoreUpdate,
		LastSeen:        p.LastSeen,
	}
	if p.Locked {
		expires := p.LockExpiresAt
		s.LockExpiresAt = &expires
	}
	for _, sighting := range p.RecentIPs {
		s.KnownIPs = append(s.KnownIPs, sighting.SourceIP)
	}
	return s
}
