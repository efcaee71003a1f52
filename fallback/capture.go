package fallback

import (
	"strings"

	"github.com/cptaffe/previewhl/styled"
)

// captureRoles maps capture name stems used in the .scm files to roles.
var captureRoles = map[string]styled.Role{
	"keyword": styled.RoleKeyword,
	"type":    styled.RoleType,
	"string":  styled.RoleString,
	"comment": styled.RoleComment,
	"number":  styled.RoleNumber,
}

// captureRole resolves a capture name with hierarchical fallback:
//
//	"type.builtin" → "type" → RoleType
//
// RoleDefault means the capture is ignored.
func captureRole(name string) styled.Role {
	name = strings.TrimPrefix(name, "@")
	for {
		if role, ok := captureRoles[name]; ok {
			return role
		}
		dot := strings.LastIndex(name, ".")
		if dot < 0 {
			return styled.RoleDefault
		}
		name = name[:dot]
	}
}

// claim colors bytes [start, end) with role where no earlier capture has
// claimed them ("first capture wins").
func claim(roles []styled.Role, start, end int, role styled.Role) {
	if role == styled.RoleDefault {
		return
	}
	for i := max(start, 0); i < end && i < len(roles); i++ {
		if roles[i] == styled.RoleDefault {
			roles[i] = role
		}
	}
}
