// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "errors"

var (
	// ErrDenied 鉴权未通过，调用方必须在执行操作之前拒绝请求
	ErrDenied = errors.New("access denied")
	// ErrNotFound 引用的用户、通知或覆盖目标不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument 未知的模块或动作名称
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAuditWriteFailed 审计写入失败，仅在内部记录，不会返回给业务调用方
	ErrAuditWriteFailed = errors.New("audit write failed")
	// ErrDeliveryFailed 实时推送失败，不影响已持久化的通知
	ErrDeliveryFailed = errors.New("live delivery failed")
)

func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
