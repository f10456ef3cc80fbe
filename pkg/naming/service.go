package naming

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/utils/clock"
)

// Naming contract for driver services. External tooling matches on these
// literals, so they must not change.
const (
	// DriverServiceSuffix is appended to the resource prefix to form the
	// internal driver service name.
	DriverServiceSuffix = "-driver-svc"

	// FallbackServicePrefix starts the derived service name used when the
	// preferred name does not fit the length budget.
	FallbackServicePrefix = "spark-"

	// UIServiceSuffix is appended to the resolved service name to form the
	// external UI service name.
	UIServiceSuffix = "-ui"

	// DriverPortName names the driver RPC port on the internal service.
	DriverPortName = "driver-rpc-port"

	// BlockManagerPortName names the block manager port on the internal service.
	BlockManagerPortName = "block-manager-port"

	// UIPortName names the web UI port on the external service.
	UIPortName = "driver-ui-port"
)

// MaxServiceNameLength bounds the resolved driver service name so that the
// UI service name, which appends UIServiceSuffix to it, still fits the
// DNS-1123 label ceiling with a character to spare.
const MaxServiceNameLength = validation.DNS1123LabelMaxLength - len(UIServiceSuffix) - 1

// ResolveDriverServiceName resolves the name of the internal driver service
// for the given resource prefix. The preferred name is the prefix with
// DriverServiceSuffix appended; when that exceeds MaxServiceNameLength the
// result is derived from the clock instead (FallbackServicePrefix, the
// current epoch milliseconds, DriverServiceSuffix) and a warning naming both
// candidates is logged. The second return reports whether the fallback was
// taken.
//
// The resolution is deterministic for a fixed clock and never fails; name
// collisions on the cluster surface later, when the service is created.
func ResolveDriverServiceName(prefix string, clk clock.PassiveClock, log *zap.SugaredLogger) (string, bool) {
	preferred := prefix + DriverServiceSuffix
	if len(preferred) <= MaxServiceNameLength {
		return preferred, false
	}

	fallback := FallbackServicePrefix + strconv.FormatInt(clk.Now().UnixMilli(), 10) + DriverServiceSuffix
	log.Warnw("Preferred driver service name is too long, deriving one from the launch time",
		"preferred", preferred,
		"preferredLength", len(preferred),
		"maxLength", MaxServiceNameLength,
		"fallback", fallback)
	return fallback, true
}

// DriverServiceName is ResolveDriverServiceName without the fallback report,
// for callers that only need the resolved name.
func DriverServiceName(prefix string, clk clock.PassiveClock, log *zap.SugaredLogger) string {
	name, _ := ResolveDriverServiceName(prefix, clk, log)
	return name
}

// UIServiceName returns the name of the external UI service for a resolved
// driver service name. Names produced by ResolveDriverServiceName leave room
// for the suffix, so the result always fits the DNS-1123 label ceiling.
func UIServiceName(resolved string) string {
	return resolved + UIServiceSuffix
}

// ServiceFQDN composes the cluster-internal fully qualified domain name of a
// service from its name, namespace, and the cluster DNS domain, e.g.
// "pi-driver-svc.analytics.svc.cluster.local". Inputs are assumed valid.
func ServiceFQDN(name, namespace, dnsDomain string) string {
	return fmt.Sprintf("%s.%s.%s", name, namespace, dnsDomain)
}
