package fraud

import (
	"context"
	"fmt"
	"math"
	"net/netip"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// NetworkEvaluator inspects connection metadata: source address class,
// proxy indicators reported by the portal, and cross-session location
// consistency. The reputation service is optional.
type NetworkEvaluator struct {
	reputation IPReputationService
}

// NewNetworkEvaluator creates the network evaluator. A nil reputation
// service disables the external lookup and keeps the local heuristics.
func NewNetworkEvaluator(reputation IPReputationService) *NetworkEvaluator {
	return &NetworkEvaluator{reputation: reputation}
}

// Name identifies the evaluator in logs and metrics.
func (e *NetworkEvaluator) Name() string { return EvaluatorNetwork }

// Applicable requires network context; submissions routed through internal
// channels carry none.
func (e *NetworkEvaluator) Applicable(input *AssessmentInput) bool {
	return input.Network != nil
}

// Evaluate scores the connection metadata.
func (e *NetworkEvaluator) Evaluate(ctx context.Context, input *AssessmentInput) ([]assessment.DetectedPattern, error) {
	net := input.Network
	var patterns []assessment.DetectedPattern

	if p := e.evaluateAddress(ctx, net.IPAddress); p != nil {
		patterns = append(patterns, *p)
	} else if e.reputation != nil && net.IPAddress != "" {
		rep, err := e.reputation.Lookup(ctx, net.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("ip reputation lookup for %s: %w", net.IPAddress, err)
		}
		if rep != nil && (rep.Suspicious || rep.ProxyOrVPN || rep.Hosting) {
			patterns = append(patterns, assessment.NewDetectedPattern(
				PatternSuspiciousIP,
				assessment.CategoryNetwork,
				0.85, 0.7,
				fmt.Sprintf("reputation service flagged %s: %s", net.IPAddress, reputationReason(rep)),
			))
		}
	}

	if n := len(net.SuspiciousConnections); n > 0 {
		confidence := math.Min(0.95, 0.75+0.05*float64(n))
		evidence := make([]string, 0, n)
		for _, conn := range net.SuspiciousConnections {
			evidence = append(evidence, "suspicious connection indicator: "+conn)
		}
		patterns = append(patterns, assessment.NewDetectedPattern(
			PatternSuspiciousIP,
			assessment.CategoryNetwork,
			confidence, 0.7,
			evidence...,
		))
	}

	if lc := net.LocationConsistency; lc != nil && *lc < LocationConsistencyFloor {
		patterns = append(patterns, assessment.NewDetectedPattern(
			PatternLocationInconsistency,
			assessment.CategoryNetwork,
			1-*lc, 0.6,
			fmt.Sprintf("location consistency %.2f below floor %.2f", *lc, LocationConsistencyFloor),
		))
	}

	return patterns, nil
}

// evaluateAddress applies the local address-class heuristics. It returns a
// pattern for unparseable, loopback, private, or otherwise non-routable
// source addresses; a clean public address returns nil so the reputation
// lookup can run.
func (e *NetworkEvaluator) evaluateAddress(_ context.Context, ip string) *assessment.DetectedPattern {
	if ip == "" {
		return nil
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		p := assessment.NewDetectedPattern(
			PatternSuspiciousIP,
			assessment.CategoryNetwork,
			0.6, 0.5,
			fmt.Sprintf("source address %q is not a valid IP", ip),
		)
		return &p
	}

	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() || addr.IsMulticast() {
		p := assessment.NewDetectedPattern(
			PatternSuspiciousIP,
			assessment.CategoryNetwork,
			0.8, 0.6,
			fmt.Sprintf("source address %s is not publicly routable", addr),
		)
		return &p
	}

	return nil
}

func reputationReason(rep *IPReputation) string {
	if rep.Reason != "" {
		return rep.Reason
	}
	switch {
	case rep.ProxyOrVPN:
		return "proxy or VPN exit"
	case rep.Hosting:
		return "datacenter hosting range"
	default:
		return "flagged by reputation source"
	}
}
