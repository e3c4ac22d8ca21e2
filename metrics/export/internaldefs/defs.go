package internaldefs

import (
	sessionauth "github.com/baxter-io/sessionauth"
)

// Def names one exported series.
type Def struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// Counters lists every counter in export order.
var Counters = []Def{
	{ID: sessionauth.MetricLoginSuccess, Name: "sessionauth_login_success_total", Help: "Logins that returned an access token."},
	{ID: sessionauth.MetricLoginFailure, Name: "sessionauth_login_failure_total", Help: "Rejected or failed logins."},
	{ID: sessionauth.MetricRegisterSuccess, Name: "sessionauth_register_success_total", Help: "Created accounts."},
	{ID: sessionauth.MetricRegisterDuplicate, Name: "sessionauth_register_duplicate_total", Help: "Registrations rejected for a taken username."},
	{ID: sessionauth.MetricRegisterRoleNotFound, Name: "sessionauth_register_role_not_found_total", Help: "Registrations naming an unknown role."},
	{ID: sessionauth.MetricRegisterLinkFailure, Name: "sessionauth_register_link_failure_total", Help: "Registrations with incomplete role links."},
	{ID: sessionauth.MetricRefreshSuccess, Name: "sessionauth_refresh_success_total", Help: "Completed refresh rotations."},
	{ID: sessionauth.MetricRefreshFailure, Name: "sessionauth_refresh_failure_total", Help: "Refresh attempts that produced no tokens."},
	{ID: sessionauth.MetricRefreshTokenIssued, Name: "sessionauth_refresh_token_issued_total", Help: "Refresh tokens written to Redis."},
	{ID: sessionauth.MetricRefreshTokenIssueFailure, Name: "sessionauth_refresh_token_issue_failure_total", Help: "Login refresh tokens that could not be written."},
}

// Histograms lists every latency histogram in export order.
var Histograms = []Def{
	{ID: sessionauth.MetricLoginLatency, Name: "sessionauth_login_latency_seconds", Help: "Login latency."},
	{ID: sessionauth.MetricRefreshLatency, Name: "sessionauth_refresh_latency_seconds", Help: "Refresh latency."},
}

// BucketCount is the number of buckets including +Inf.
const BucketCount = 8

// UpperBounds are the finite bucket bounds in seconds. The last bucket is +Inf.
var UpperBounds = [BucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BoundSuffix is the name suffix of each bucket, +Inf included.
var BoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// Normalize pads or truncates raw to BucketCount entries.
func Normalize(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// Cumulative converts per-bucket counts into running totals.
func Cumulative(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
