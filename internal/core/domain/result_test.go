package domain

import (
	"errors"
	"testing"
)

func TestResult_Success(t *testing.T) {
	res := Success(42)
	if !res.OK() {
		t.Fatalf("expected success")
	}
	if res.Failure() != nil {
		t.Fatalf("success must not carry a failure")
	}
	v, err := res.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}
}

func TestResult_Fail(t *testing.T) {
	res := Fail[int](KindNotFound, MsgAccountNotFound)
	if res.OK() {
		t.Fatalf("expected failure")
	}
	if res.Value() != 0 {
		t.Fatalf("failure must carry the zero value")
	}
	f := res.Failure()
	if f.Kind != KindNotFound || f.Message != "account not found." {
		t.Fatalf("unexpected failure: %+v", f)
	}
	_, err := res.Unwrap()
	var got *Failure
	if !errors.As(err, &got) || got != f {
		t.Fatalf("unwrap must return the failure as error, got %v", err)
	}
}

func TestResult_Internal(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	res := Internal[string](cause)

	f := res.Failure()
	if f == nil || f.Kind != KindInternal {
		t.Fatalf("expected INTERNAL_ERROR, got %+v", f)
	}
	if f.Message != cause.Error() {
		t.Fatalf("expected cause message preserved, got %q", f.Message)
	}
	if !errors.Is(f, cause) {
		t.Fatalf("failure must unwrap to its cause")
	}
}

func TestAccount_View(t *testing.T) {
	a := &Account{ID: "id-1", Email: "a@x.com", Name: "A", PasswordHash: "digest"}
	v := a.View()
	if v.Roles == nil || len(v.Roles) != 0 {
		t.Fatalf("roles must be an empty, non-nil slice: %#v", v.Roles)
	}

	a.Roles = []string{RoleAdmin}
	v = a.View()
	a.Roles[0] = "mutated"
	if v.Roles[0] != RoleAdmin {
		t.Fatalf("view must not alias account roles")
	}
}
