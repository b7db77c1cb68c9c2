/*
 * This file is part of the KubeVirt project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Copyright The KubeVirt Authors.
 *
 */

package debug

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

// Message is a message received by the callback.
//
// LayerPrefix and Description point into memory owned by the layer that
// reported the message and are only valid until the callback returns. Use
// Clone to keep a message.
type Message struct {
	// Severity of message.
	Severity MessageSeverity
	// Type of message.
	Type MessageType
	// Identifier of the layer check that reported this message, may be empty.
	LayerPrefix string
	// Identifier number of the check, zero when the layer does not set one.
	MessageIDNumber int32
	// Description of the message.
	Description string
}

// Clone returns a copy of m that does not reference driver memory.
func (m *Message) Clone() Message {
	c := *m
	c.LayerPrefix = strings.Clone(m.LayerPrefix)
	c.Description = strings.Clone(m.Description)
	return c
}

func newMessage(severity vk.DebugUtilsMessageSeverityFlags, types vk.DebugUtilsMessageTypeFlags,
	layerPrefix string, idNumber int32, description string) Message {
	// Layers only emit UTF-8; anything else means the callback data is not
	// what we think it is.
	if !utf8.ValidString(layerPrefix) {
		panic(fmt.Sprintf("debug callback message id name is not utf-8: %q", layerPrefix))
	}
	if !utf8.ValidString(description) {
		panic(fmt.Sprintf("debug callback message is not utf-8: %q", description))
	}

	return Message{
		Severity:        MessageSeverityFromFlags(severity),
		Type:            MessageTypeFromFlags(types),
		LayerPrefix:     layerPrefix,
		MessageIDNumber: idNumber,
		Description:     description,
	}
}
