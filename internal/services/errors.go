package services

import "errors"

var (
	ErrRoomNotFound   = errors.New("房間不存在")
	ErrPlayerNotFound = errors.New("玩家不在房間內")
	ErrNameTaken      = errors.New("名稱已被使用")
	ErrNameAlreadySet = errors.New("名稱已設定，無法變更")
	ErrInvalidName    = errors.New("名稱不可為空白")
	ErrAlreadyDrew    = errors.New("此名稱已經抽過獎")
	ErrInvalidAxis    = errors.New("未知的抽獎項目")
	ErrEmptyPool      = errors.New("抽獎池是空的")
)
