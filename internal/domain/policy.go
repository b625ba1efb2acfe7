package domain

// RoomAction 枚举房间内需要授权的操作。
type RoomAction string

const (
	ActionSendChat         RoomAction = "send_chat"
	ActionChangeLanguage   RoomAction = "change_language"
	ActionChangeEditorType RoomAction = "change_editor_type"
	ActionEditCode         RoomAction = "edit_code"
	ActionKick             RoomAction = "kick"
	ActionChangeRole       RoomAction = "change_role"
	ActionDeleteRoom       RoomAction = "delete_room"
)

// CanPerform 是房间内唯一的权限矩阵。
// role 为 RoleNone 表示请求者不是参与者；讲师的身份单独通过 isInstructor 传入。
func CanPerform(action RoomAction, role ParticipantRole, isInstructor bool) bool {
	if isInstructor {
		return true
	}
	switch action {
	case ActionSendChat:
		return role.Valid()
	case ActionChangeLanguage, ActionChangeEditorType, ActionEditCode:
		return role == RoleEditor
	default:
		// 踢人、修改角色、删除房间只允许讲师
		return false
	}
}
