package store

import "testing"

func TestMemberKeyRoundTrip(t *testing.T) {
	key := MemberKey("inst-1")
	if key != "netring:member:inst-1" {
		t.Fatalf("unexpected key: %s", key)
	}
	id, ok := IsMemberKey(key)
	if !ok || id != "inst-1" {
		t.Fatalf("IsMemberKey(%s) = %s, %v", key, id, ok)
	}
	if _, ok := IsMemberKey("netring:metrics:inst-1"); ok {
		t.Fatalf("IsMemberKey should reject metrics keys")
	}
}

func TestMetricsKeyRoundTrip(t *testing.T) {
	key := MetricsKey("inst-1")
	if key != "netring:metrics:inst-1" {
		t.Fatalf("unexpected key: %s", key)
	}
	id, ok := IsMetricsKey(key)
	if !ok || id != "inst-1" {
		t.Fatalf("IsMetricsKey(%s) = %s, %v", key, id, ok)
	}
}
