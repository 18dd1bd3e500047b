package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/authgate"
)

type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authgate.MetricGatewayForwarded, Name: "authgate_gateway_forwarded_total", Help: "Requests forwarded to the identity provider."},
	{ID: authgate.MetricGatewayRejected, Name: "authgate_gateway_rejected_total", Help: "Requests rejected by the gateway for an unsupported method."},
	{ID: authgate.MetricCurrentUserResolved, Name: "authgate_current_user_resolved_total", Help: "Current-user lookups that found a session."},
	{ID: authgate.MetricCurrentUserAbsent, Name: "authgate_current_user_absent_total", Help: "Current-user lookups without a session."},
	{ID: authgate.MetricCurrentUserFailed, Name: "authgate_current_user_failed_total", Help: "Current-user lookups that failed."},
	{ID: authgate.MetricSignInSuccess, Name: "authgate_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: authgate.MetricSignInFailure, Name: "authgate_sign_in_failure_total", Help: "Failed sign-ins."},
	{ID: authgate.MetricSignOut, Name: "authgate_sign_out_total", Help: "Sign-outs."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Created sessions."},
	{ID: authgate.MetricRateLimited, Name: "authgate_rate_limited_total", Help: "Requests denied by the rate limiter."},
	{ID: authgate.MetricGuardRejected, Name: "authgate_guard_rejected_total", Help: "Login requests rejected by the email existence guard."},
	{ID: authgate.MetricSignupRejected, Name: "authgate_signup_rejected_total", Help: "User creations rejected by the signup policy."},
	{ID: authgate.MetricUserCreated, Name: "authgate_user_created_total", Help: "Created users."},
	{ID: authgate.MetricPasswordResetRequest, Name: "authgate_password_reset_request_total", Help: "Password reset requests."},
	{ID: authgate.MetricPasswordResetConfirm, Name: "authgate_password_reset_confirm_total", Help: "Completed password resets."},
	{ID: authgate.MetricVerificationSent, Name: "authgate_verification_sent_total", Help: "Verification emails sent."},
	{ID: authgate.MetricEmailVerified, Name: "authgate_email_verified_total", Help: "Verified email addresses."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricGatewayLatency, Name: "authgate_gateway_latency_seconds", Help: "Gateway round-trip latency."},
}

// AuditDropped is exported next to the metric set; its value comes from the audit dispatcher.
var AuditDropped = CounterDef{Name: "authgate_audit_dropped_total", Help: "Audit events dropped under backpressure."}

// HistogramUpperBounds are authgate.LatencyBounds in seconds, without the
// implicit +Inf bucket.
var HistogramUpperBounds = func() []float64 {
	out := make([]float64, len(authgate.LatencyBounds))
	for i, b := range authgate.LatencyBounds {
		out[i] = b.Seconds()
	}
	return out
}()

// BoundLabel renders bucket i the way Prometheus spells its le label.
func BoundLabel(i int) string {
	if i >= len(HistogramUpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(HistogramUpperBounds[i], 'g', -1, 64)
}

// CumulativeBuckets pads or truncates raw to one count per bound plus +Inf and
// returns running totals. The last entry is the sample count.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(HistogramUpperBounds)+1)
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
