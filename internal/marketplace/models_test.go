package marketplace_test

import (
	"strings"
	"testing"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
)

func TestAppendAnswers(t *testing.T) {
	cases := []struct {
		desc    string
		answers []marketplace.Answer
		want    string
	}{
		{"Mount a TV", nil, "Mount a TV"},
		{"  Mount a TV  ", []marketplace.Answer{{Question: "Wall type?", Answer: "drywall"}}, "Mount a TV\nWall type? drywall"},
		{"Mount a TV", []marketplace.Answer{{Question: "Size?", Answer: "  "}}, "Mount a TV"},
		{"", []marketplace.Answer{{Answer: "65 inch"}}, "65 inch"},
	}
	for _, c := range cases {
		if got := marketplace.AppendAnswers(c.desc, c.answers); got != c.want {
			t.Errorf("AppendAnswers(%q) = %q, want %q", c.desc, got, c.want)
		}
	}
}

func TestJobParamHandOff(t *testing.T) {
	pro := "pro-1"
	p := 35.0
	in := marketplace.Job{
		ServiceID:         "b0b7f1de-6f2a-4c1e-9d33-52cbe0c4a1a2",
		CustomerID:        "customer-1",
		Status:            marketplace.StatusConfirmed,
		Location:          "12 Main St & 3rd Ave",
		Price:             &p,
		ServiceProviderID: &pro,
		Description:       "Move a couch?",
	}
	param, err := marketplace.EncodeJobParam(in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsAny(param, "&? ") {
		t.Errorf("param %q is not query-safe", param)
	}
	out, err := marketplace.DecodeJobParam(param)
	if err != nil {
		t.Fatal(err)
	}
	if out.ServiceID != in.ServiceID || out.Location != in.Location || !out.IsAssignedTo(pro) {
		t.Errorf("decoded job = %+v", out)
	}
}

func TestDecodeJobParam_NormalizesStatus(t *testing.T) {
	param := `%7B%22service_id%22%3A%22x%22%2C%22status%22%3A%22Select_Service_Provider%22%7D`
	j, err := marketplace.DecodeJobParam(param)
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != marketplace.StatusSelectServiceProvider {
		t.Errorf("status = %q, want select_service_provider", j.Status)
	}

	bad := `%7B%22status%22%3A%22archived%22%7D`
	if _, err := marketplace.DecodeJobParam(bad); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestCheckAssignment(t *testing.T) {
	pro := "pro-1"
	cases := []struct {
		status   marketplace.Status
		provider *string
		ok       bool
	}{
		{marketplace.StatusFindingPros, nil, true},
		{marketplace.StatusSelectServiceProvider, nil, true},
		{marketplace.StatusConfirmed, &pro, true},
		{marketplace.StatusCompleted, &pro, true},
		{marketplace.StatusConfirmed, nil, false},
		{marketplace.StatusFindingPros, &pro, false},
	}
	for _, c := range cases {
		err := marketplace.CheckAssignment(&marketplace.Job{ServiceID: "x", Status: c.status, ServiceProviderID: c.provider})
		if (err == nil) != c.ok {
			t.Errorf("CheckAssignment(%s, provider=%v) err = %v, want ok=%v", c.status, c.provider != nil, err, c.ok)
		}
	}
}
