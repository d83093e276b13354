package service

import (
	"strings"
	"testing"

	"tripmate/config"

	"github.com/stretchr/testify/assert"
)

func TestSendInviteEmail_DisabledReturnsError(t *testing.T) {
	s := NewEmailService(&config.EmailConfig{Enabled: false})

	err := s.SendInviteEmail("friend@example.com", "阿杰", "海岛小分队", "https://example.com/join/xyz")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "未启用")
}

func TestGenerateInviteEmailBody(t *testing.T) {
	s := NewEmailService(&config.EmailConfig{})

	body := s.generateInviteEmailBody("阿杰", "海岛小分队", "https://example.com/join/xyz")

	assert.True(t, strings.Contains(body, "阿杰"))
	assert.True(t, strings.Contains(body, "海岛小分队"))
	assert.True(t, strings.Contains(body, "https://example.com/join/xyz"))
	assert.Contains(t, body, "结伴旅行")
}
