package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedAppError(t *testing.T) {
	err := fmt.Errorf("send: %w", Forbidden("not a member", nil))

	assert.True(t, Is(err, CodeForbidden))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(fmt.Errorf("plain"), CodeForbidden))
}

func TestConstructorsCarryStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("Group", nil).Status)
	assert.Equal(t, "Group not found", NotFound("Group", nil).Message)
	assert.Equal(t, http.StatusBadRequest, Validation("text is required").Status)
	assert.Equal(t, http.StatusServiceUnavailable, StoreUnavailable("firestore down", nil).Status)
	assert.Equal(t, 2*time.Second, TooManyRequests("slow down", 2*time.Second).RetryAfter)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(StoreUnavailable("x", nil)))
	assert.False(t, IsRetryable(Internal("x", nil)))
}
