package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan_AdventurerBypassesFlags(t *testing.T) {
	// 队长不看具体权限位，全部放行
	m := &GroupMember{Role: RoleAdventurer, CanRead: false, CanCreate: false, CanModify: false}

	assert.True(t, m.Can(PermissionRead))
	assert.True(t, m.Can(PermissionCreate))
	assert.True(t, m.Can(PermissionModify))
}

func TestCan_PartyMemberFollowsFlags(t *testing.T) {
	m := &GroupMember{Role: RolePartyMember, CanRead: true, CanCreate: true, CanModify: false}

	assert.True(t, m.Can(PermissionRead))
	assert.True(t, m.Can(PermissionCreate))
	assert.False(t, m.Can(PermissionModify))
}

func TestCan_UnknownPermissionDenied(t *testing.T) {
	m := &GroupMember{Role: RolePartyMember, CanRead: true, CanCreate: true, CanModify: true}

	assert.False(t, m.Can(Permission("delete-everything")))
}
