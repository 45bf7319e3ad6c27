package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawReport is a report exactly as the capture service wrote it.
type RawReport map[string]any

// Info is the summary section of a raw report. Any field may be missing.
type Info struct {
	ReportID    *string
	Version     *string
	Type        *string
	Timestamp   *string
	ProcessName *string
}

type CrashReport struct {
	ID            int64
	Name          string
	CrashDate     *time.Time
	RawValue      RawReport
	Info          *Info
	AppleFmtValue *string
}

func NewCrashReport(appName string, id int64, raw RawReport) *CrashReport {
	return &CrashReport{
		ID:       id,
		Name:     DeriveName(appName, id),
		RawValue: raw,
	}
}

// Equal compares reports by id only.
func (r CrashReport) Equal(other CrashReport) bool {
	return r.ID == other.ID
}

func (r *CrashReport) HasFormattedText() bool {
	return r.AppleFmtValue != nil
}

func (r *CrashReport) Summary() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.Info != nil && r.Info.Type != nil {
		b.WriteString(" - ")
		b.WriteString(*r.Info.Type)
	}
	if r.CrashDate != nil {
		b.WriteString(" @ ")
		b.WriteString(r.CrashDate.UTC().Format(time.RFC3339))
	}
	return b.String()
}

const reportInfix = "-report-"

// DeriveName is the file stem the capture service uses for report id.
func DeriveName(appName string, id int64) string {
	return fmt.Sprintf("%s%s%016x", appName, reportInfix, uint64(id))
}

// ParseReportName is the inverse of DeriveName.
func ParseReportName(appName, name string) (int64, bool) {
	prefix := appName + reportInfix
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	hex := strings.TrimPrefix(name, prefix)
	if len(hex) != 16 || hex != strings.ToLower(hex) {
		return 0, false
	}
	id, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, false
	}
	return int64(id), true
}
