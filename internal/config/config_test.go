package config

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	got := splitList(" v3, ,v2 ")
	want := []string{"v3", "v2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_ITERATIONS", "2500")
	if n := getEnvInt("TEST_ITERATIONS", 1); n != 2500 {
		t.Errorf("Expected 2500, got %d", n)
	}

	t.Setenv("TEST_ITERATIONS", "lots")
	if n := getEnvInt("TEST_ITERATIONS", 7); n != 7 {
		t.Errorf("Expected fallback 7, got %d", n)
	}

	if n := getEnvInt("TEST_ITERATIONS_UNSET", 9); n != 9 {
		t.Errorf("Expected fallback 9, got %d", n)
	}
}

func TestR2ConfigEnabled(t *testing.T) {
	if (R2Config{}).Enabled() {
		t.Error("Empty R2 config should be disabled")
	}
	c := R2Config{AccountID: "a", AccessKeyID: "k", SecretAccessKey: "s", BucketName: "b"}
	if !c.Enabled() {
		t.Error("Complete R2 config should be enabled")
	}
}
