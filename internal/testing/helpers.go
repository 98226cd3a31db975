package testing

import (
	"context"
	"testing"

	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"google.golang.org/api/drive/v3"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// TestRequestContext creates a standard request context for testing
func TestRequestContext() *types.RequestContext {
	return &types.RequestContext{
		ConnectorID:     "test-connector",
		InvolvedNodeIDs: []string{},
		RequestType:     types.RequestTypeListChildren,
		TraceID:         "test-trace-id",
	}
}

// TestRequestContextWithNodes creates a request context with node IDs
func TestRequestContextWithNodes(nodeIDs ...string) *types.RequestContext {
	ctx := TestRequestContext()
	ctx.InvolvedNodeIDs = nodeIDs
	return ctx
}

// TestDriveFile creates a mock Drive file for testing
func TestDriveFile(id, name string) *drive.File {
	return &drive.File{
		Id:       id,
		Name:     name,
		MimeType: "text/plain",
	}
}

// TestDriveFolder creates a mock Drive folder for testing
func TestDriveFolder(id, name string) *drive.File {
	return &drive.File{
		Id:       id,
		Name:     name,
		MimeType: utils.MimeTypeFolder,
	}
}

// TestRemoteFolder creates a remote folder node for testing
func TestRemoteFolder(id, parentID, name string) types.RemoteNode {
	return types.RemoteNode{
		ID:       id,
		ParentID: parentID,
		Name:     name,
		Kind:     types.NodeKindFolder,
	}
}

// TestRemoteFile creates a remote file node for testing
func TestRemoteFile(id, parentID, name string) types.RemoteNode {
	return types.RemoteNode{
		ID:       id,
		ParentID: parentID,
		Name:     name,
		Kind:     types.NodeKindFile,
	}
}

// AssertNoError is a helper to fail the test if error is not nil
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

// AssertError is a helper to fail the test if error is nil
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected error but got nil", msgAndArgs[0])
		} else {
			t.Fatal("expected error but got nil")
		}
	}
}

// AssertErrorCode is a helper to fail the test if the error does not
// carry the given service error code
func AssertErrorCode(t *testing.T, err error, code string, msgAndArgs ...interface{}) {
	t.Helper()
	AssertError(t, err, msgAndArgs...)
	if got := utils.CodeOf(err); got != code {
		t.Fatalf("got error code %s, want %s (error: %v)", got, code, err)
	}
}

// AssertEqual is a helper to fail the test if two values are not equal
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got %v, want %v", msgAndArgs[0], got, want)
		} else {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// AssertNotNil is a helper to fail the test if value is nil
func AssertNotNil(t *testing.T, value interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if value == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected non-nil value", msgAndArgs[0])
		} else {
			t.Fatal("expected non-nil value")
		}
	}
}

// AssertNil is a helper to fail the test if value is not nil
func AssertNil(t *testing.T, value interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if value != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected nil value but got %v", msgAndArgs[0], value)
		} else {
			t.Fatalf("expected nil value but got %v", value)
		}
	}
}
