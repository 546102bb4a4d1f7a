package model

import (
	"fmt"
	"time"
)

// ClockTime 以 "HH:MM" 的形式序列化时间，用于消息气泡中的显示时间。
type ClockTime time.Time

const clockFormat = "15:04"

// MarshalJSON implements the json.Marshaler interface.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", t.String())
	return []byte(formatted), nil
}

func (t ClockTime) String() string {
	return time.Time(t).Local().Format(clockFormat)
}
