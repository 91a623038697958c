package apierror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := NewValidation("name is required", nil).WithContext("manager", "createFolder")
	msg := e.Error()
	if !strings.Contains(msg, "validation") {
		t.Errorf("message %q missing category", msg)
	}
	if !strings.Contains(msg, "manager/createFolder") {
		t.Errorf("message %q missing call site", msg)
	}
}

func TestErrorIs(t *testing.T) {
	e := NewClient("manager provider not initialized")
	wrapped := fmt.Errorf("initialize: %w", e)

	if !errors.Is(wrapped, &Error{Category: CategoryClient}) {
		t.Error("errors.Is should match on category")
	}
	if errors.Is(wrapped, &Error{Category: CategoryServer}) {
		t.Error("errors.Is matched the wrong category")
	}
}

func TestAsThroughChain(t *testing.T) {
	e := NewNetwork("connection failed", errors.New("timeout"))
	wrapped := fmt.Errorf("createTestCase: %w", e)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("As failed to extract classified error")
	}
	if got.Category != CategoryNetwork {
		t.Errorf("category = %s, want %s", got.Category, CategoryNetwork)
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable should see through wrapping")
	}
	if !IsCategory(wrapped, CategoryNetwork) {
		t.Error("IsCategory should see through wrapping")
	}
}

func TestWithResource(t *testing.T) {
	e := Classify(&Failure{StatusCode: 404}).
		WithContext("manager", "getTestCase").
		WithResource("test-case", "TC-77")

	if e.Context.ResourceID != "TC-77" || e.Context.ResourceType != "test-case" {
		t.Errorf("resource context not carried: %+v", e.Context)
	}
}
