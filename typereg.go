// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"reflect"
	"sync"
)

// messageTag identifies the dynamic type of an envelope payload.
//
// When the payload type has a registered name, tags compare by pointer
// identity of the interned name. Otherwise they fall back to runtime
// type identity. Register names before the first send of a type; a tag
// captured before registration compares by runtime identity only.
type messageTag struct {
	name  *string // interned registered name, nil when unregistered
	rtype reflect.Type
}

func (t messageTag) matches(o messageTag) bool {
	if t.name != nil && o.name != nil {
		return t.name == o.name
	}
	return t.rtype == o.rtype
}

var typeRegistry struct {
	mu    sync.RWMutex
	names map[reflect.Type]*string
	taken map[string]reflect.Type
}

// RegisterMessageName assigns a stable, unique name to message type T.
//
// Registration is optional. When present, handler dispatch for T
// compares interned names instead of runtime types, giving a stable
// identity across frameworks in the process. Panics if T already has a
// name or the name is already taken by another type.
func RegisterMessageName[T any](name string) {
	if name == "" {
		panic("hive: empty message name")
	}
	rt := reflect.TypeOf((*T)(nil)).Elem()

	typeRegistry.mu.Lock()
	defer typeRegistry.mu.Unlock()
	if typeRegistry.names == nil {
		typeRegistry.names = make(map[reflect.Type]*string)
		typeRegistry.taken = make(map[string]reflect.Type)
	}
	if _, dup := typeRegistry.names[rt]; dup {
		panic("hive: message type registered twice: " + rt.String())
	}
	if prev, dup := typeRegistry.taken[name]; dup && prev != rt {
		panic("hive: message name registered twice: " + name)
	}
	interned := name
	typeRegistry.names[rt] = &interned
	typeRegistry.taken[name] = rt
}

// MessageNameOf returns the registered name of v's dynamic type, or the
// runtime type string when unregistered.
func MessageNameOf(v any) string {
	return tagOf(v).String()
}

func (t messageTag) String() string {
	if t.name != nil {
		return *t.name
	}
	if t.rtype == nil {
		return "<nil>"
	}
	return t.rtype.String()
}

func registeredName(rt reflect.Type) *string {
	typeRegistry.mu.RLock()
	name := typeRegistry.names[rt]
	typeRegistry.mu.RUnlock()
	return name
}

// tagOf captures the tag of a payload value's dynamic type.
func tagOf(v any) messageTag {
	rt := reflect.TypeOf(v)
	return messageTag{name: registeredName(rt), rtype: rt}
}

// tagFor captures the tag of static type T.
func tagFor[T any]() messageTag {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	return messageTag{name: registeredName(rt), rtype: rt}
}
