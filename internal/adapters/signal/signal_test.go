package signal

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dkeye/zoomify/internal/domain"
)

func TestOverridesFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/ws/session?topic=standup&signature=s&name=Ann&pwd=pw&webEndpoint=example.com&enforceGalleryView=1", nil)

	assert.Equal(t, domain.MeetingArgs{
		Topic:              "standup",
		Signature:          "s",
		UserName:           "Ann",
		Password:           "pw",
		WebEndpoint:        "example.com",
		EnforceGalleryView: true,
	}, OverridesFromQuery(c))
}

func TestOverridesFromQuery_EnforceOnlyOnOne(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/ws/session?enforceGalleryView=true", nil)

	assert.False(t, OverridesFromQuery(c).EnforceGalleryView)
}
