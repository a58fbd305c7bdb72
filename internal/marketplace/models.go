package marketplace

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/geofence"
)

// SchedulingType is how the customer wants the job scheduled.
type SchedulingType string

const (
	SchedulingASAP      SchedulingType = "asap"
	SchedulingScheduled SchedulingType = "scheduled"
)

// AutofillType selects between customer choice and the first-provider-wins
// fast path.
type AutofillType string

const (
	AutofillAuto   AutofillType = "AutoFill"
	AutofillCustom AutofillType = "Custom"
)

// Job mirrors a row of the service table.
type Job struct {
	ServiceID         string         `json:"service_id"`
	CustomerID        string         `json:"customer_id"`
	ServiceType       string         `json:"service_type"`
	Status            Status         `json:"status"`
	SchedulingType    SchedulingType `json:"scheduling_type"`
	ScheduledDateTime *time.Time     `json:"scheduled_date_time"`
	DateOfCreation    time.Time      `json:"date_of_creation"`
	Location          string         `json:"location"`
	StartLocation     string         `json:"start_location,omitempty"`
	Price             *float64       `json:"price"`
	PaymentMethodType string         `json:"payment_method_type,omitempty"`
	AutofillType      AutofillType   `json:"autofill_type"`
	ServiceProviderID *string        `json:"service_provider_id"`
	Description       string         `json:"description"`
}

// IsAssignedTo reports whether providerID is the job's confirmed provider.
func (j *Job) IsAssignedTo(providerID string) bool {
	return j.ServiceProviderID != nil && *j.ServiceProviderID == providerID
}

// CheckAssignment verifies that a provider is set exactly when the status
// requires one.
func CheckAssignment(j *Job) error {
	hasProvider := j.ServiceProviderID != nil && *j.ServiceProviderID != ""
	if hasProvider != j.Status.RequiresProvider() {
		return fmt.Errorf("job %s: status %s with provider set=%v", j.ServiceID, j.Status, hasProvider)
	}
	return nil
}

// Bid mirrors a row of the service_fill_request table. A provider has at most
// one bid per job.
type Bid struct {
	ServiceID         string     `json:"service_id"`
	ServiceProviderID string     `json:"service_provider_id"`
	Bid               float64    `json:"bid"`
	ProposedDateTime  *time.Time `json:"proposed_date_time"`
	CreatedAt         time.Time  `json:"created_at"`
}

// JobView is a job as seen by a polling screen.
type JobView struct {
	Job
	BidCount      int    `json:"fill_request_count"`
	ReadyToSelect bool   `json:"ready_to_select"`
	Badge         string `json:"badge"`
}

func newJobView(j Job, bids int) JobView {
	return JobView{
		Job:           j,
		BidCount:      bids,
		ReadyToSelect: ReadyToSelect(j.Status, bids),
		Badge:         j.Status.BadgeText(),
	}
}

// JobInput is the customer-supplied payload for a new job. Coordinate is
// resolved client-side and only used for the service-area check.
type JobInput struct {
	ServiceID         string               `json:"service_id,omitempty"`
	ServiceType       string               `json:"service_type"`
	SchedulingType    SchedulingType       `json:"scheduling_type"`
	ScheduledDateTime *time.Time           `json:"scheduled_date_time,omitempty"`
	Location          string               `json:"location"`
	StartLocation     string               `json:"start_location,omitempty"`
	Price             *float64             `json:"price"`
	PaymentMethodType string               `json:"payment_method_type,omitempty"`
	AutofillType      AutofillType         `json:"autofill_type"`
	Description       string               `json:"description"`
	Answers           []Answer             `json:"answers,omitempty"`
	Coordinate        *geofence.Coordinate `json:"coordinate,omitempty"`
}

// Answer is one clarifying question and the customer's reply.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AppendAnswers folds clarifying answers into the description as plain-text
// lines. Blank answers are skipped.
func AppendAnswers(description string, answers []Answer) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(description))
	for _, a := range answers {
		q, ans := strings.TrimSpace(a.Question), strings.TrimSpace(a.Answer)
		if ans == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if q != "" {
			b.WriteString(q)
			b.WriteString(" ")
		}
		b.WriteString(ans)
	}
	return b.String()
}

// EncodeJobParam serializes a job for a query parameter hand-off between
// screens: JSON, then URL-escaped.
func EncodeJobParam(j Job) (string, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encode job param: %w", err)
	}
	return url.QueryEscape(string(raw)), nil
}

// DecodeJobParam reverses EncodeJobParam and normalizes the status casing.
func DecodeJobParam(param string) (Job, error) {
	raw, err := url.QueryUnescape(param)
	if err != nil {
		return Job{}, fmt.Errorf("decode job param: %w", err)
	}
	var wire struct {
		Job
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Job{}, fmt.Errorf("decode job param: %w", err)
	}
	st, err := ParseStatus(wire.Status)
	if err != nil {
		return Job{}, err
	}
	j := wire.Job
	j.Status = st
	return j, nil
}
