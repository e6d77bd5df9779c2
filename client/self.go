package client

// Identity 本机玩家视图；Found=false 表示身份暂未解析（连接后、快照前，或本机已离开名单）
type Identity struct {
	ID          PlayerID
	Player      Player
	Found       bool
	DisplayName string
}

// ResolveSelf 从名单与本机 ID 推导出本机玩家
func ResolveSelf(st State) Identity {
	id := Identity{ID: st.SelfID(), DisplayName: st.SelfName()}
	if id.ID == "" {
		return id
	}
	id.Player, id.Found = st.Player(id.ID)
	return id
}
