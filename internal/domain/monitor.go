package domain

import (
	"fmt"
	"strings"
)

// MonitorType is a set of failure classes the capture service observes.
// Bit positions match the capture service's native flags.
type MonitorType uint

const (
	MonitorMachException MonitorType = 1 << iota
	MonitorSignal
	MonitorCPPException
	MonitorNSException
	MonitorMainThreadDeadlock
	MonitorUserReported
	MonitorSystem
	MonitorApplicationState
	MonitorZombie
	MonitorMemoryTermination

	MonitorNone MonitorType = 0
)

// DefaultMonitors is used when an install configuration names no monitors.
const DefaultMonitors = MonitorMachException | MonitorSignal | MonitorCPPException | MonitorNSException

var monitorNames = []struct {
	flag MonitorType
	name string
}{
	{MonitorMachException, "machException"},
	{MonitorSignal, "signal"},
	{MonitorCPPException, "cppException"},
	{MonitorNSException, "nsException"},
	{MonitorMainThreadDeadlock, "mainThreadDeadlock"},
	{MonitorUserReported, "userReported"},
	{MonitorSystem, "system"},
	{MonitorApplicationState, "applicationState"},
	{MonitorZombie, "zombie"},
	{MonitorMemoryTermination, "memoryTermination"},
}

// MonitorAll is every known flag.
func MonitorAll() MonitorType {
	var all MonitorType
	for _, m := range monitorNames {
		all |= m.flag
	}
	return all
}

// MonitorFatal covers the failures that terminate the process.
func MonitorFatal() MonitorType {
	return MonitorMachException | MonitorSignal | MonitorCPPException | MonitorNSException | MonitorMainThreadDeadlock
}

func MonitorExperimental() MonitorType {
	return MonitorMainThreadDeadlock
}

func (m MonitorType) Union(other MonitorType) MonitorType {
	return m | other
}

func (m MonitorType) Contains(flag MonitorType) bool {
	return m&flag == flag
}

func (m MonitorType) IsSubsetOf(other MonitorType) bool {
	return m&^other == 0
}

func (m MonitorType) IsEmpty() bool {
	return m == MonitorNone
}

// Flags returns the single-bit members of m in bit order.
func (m MonitorType) Flags() []MonitorType {
	flags := make([]MonitorType, 0, len(monitorNames))
	for _, n := range monitorNames {
		if m.Contains(n.flag) {
			flags = append(flags, n.flag)
		}
	}
	return flags
}

func (m MonitorType) String() string {
	if m == MonitorNone {
		return "none"
	}
	names := make([]string, 0, len(monitorNames))
	for _, n := range monitorNames {
		if m.Contains(n.flag) {
			names = append(names, n.name)
		}
	}
	if rest := m &^ MonitorAll(); rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint(rest)))
	}
	return strings.Join(names, "|")
}

// ParseMonitorType unions the named flags. Besides the flag names it accepts
// the composites "all", "fatal" and "experimental". Matching ignores case.
func ParseMonitorType(names []string) (MonitorType, error) {
	var m MonitorType
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		flag, ok := lookupMonitor(name)
		if !ok {
			return MonitorNone, fmt.Errorf("unknown monitor type %q", name)
		}
		m = m.Union(flag)
	}
	return m, nil
}

func lookupMonitor(name string) (MonitorType, bool) {
	switch strings.ToLower(name) {
	case "all":
		return MonitorAll(), true
	case "fatal":
		return MonitorFatal(), true
	case "experimental":
		return MonitorExperimental(), true
	}
	for _, n := range monitorNames {
		if strings.EqualFold(n.name, name) {
			return n.flag, true
		}
	}
	return MonitorNone, false
}
