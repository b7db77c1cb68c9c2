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

package vk

import "sync"

// Lifetime defers the destruction of a parent object until every child
// created from it is released. The zero value is ready to use.
type Lifetime struct {
	lock      sync.Mutex
	children  int
	requested bool
	destroy   func()
}

// Retain registers a child. It reports false once destruction was requested,
// in which case no child may be created.
func (l *Lifetime) Retain() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.requested {
		return false
	}
	l.children++
	return true
}

// Release unregisters a child and runs a pending destroy when it was the
// last one.
func (l *Lifetime) Release() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.children == 0 {
		panic("vk: Lifetime released more often than retained")
	}
	l.children--
	l.runLocked()
}

// Destroy requests destruction. destroy runs now if no child is alive,
// otherwise when the last child is released. Only the first request counts.
func (l *Lifetime) Destroy(destroy func()) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.requested {
		return
	}
	l.requested = true
	l.destroy = destroy
	l.runLocked()
}

func (l *Lifetime) runLocked() {
	if l.requested && l.children == 0 && l.destroy != nil {
		destroy := l.destroy
		l.destroy = nil
		destroy()
	}
}

// Children returns the number of children still alive.
func (l *Lifetime) Children() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.children
}
