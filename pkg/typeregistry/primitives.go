package typeregistry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	"robotick/pkg/fixedstring"
)

// RegisterPrimitives registers the built-in scalar and fixed-string
// types against r. It is called once for the global registry from
// package init, and may also be called against an isolated *Registry in
// tests that want a clean slate.
func RegisterPrimitives(r *Registry) {
	registerInt(r)
	registerFloat32(r)
	registerFloat64(r)
	registerBool(r)
	for _, n := range fixedstring.Sizes {
		registerFixedString(r, n)
	}
}

func registerInt(r *Registry) {
	var zero int32
	r.RegisterType(TypeDescriptor{
		Name:      "int",
		Size:      unsafe.Sizeof(zero),
		Alignment: unsafe.Alignof(zero),
		ToString: func(data unsafe.Pointer) (string, bool) {
			return strconv.FormatInt(int64(*(*int32)(data)), 10), true
		},
		FromString: func(str string, out unsafe.Pointer) bool {
			v, err := strconv.ParseInt(strings.TrimSpace(str), 10, 32)
			if err != nil {
				return false
			}
			*(*int32)(out) = int32(v)
			return true
		},
	})
}

func registerFloat32(r *Registry) {
	var zero float32
	r.RegisterType(TypeDescriptor{
		Name:      "float",
		Size:      unsafe.Sizeof(zero),
		Alignment: unsafe.Alignof(zero),
		ToString: func(data unsafe.Pointer) (string, bool) {
			return strconv.FormatFloat(float64(*(*float32)(data)), 'f', -1, 32), true
		},
		FromString: func(str string, out unsafe.Pointer) bool {
			v, err := strconv.ParseFloat(strings.TrimSpace(str), 32)
			if err != nil {
				return false
			}
			*(*float32)(out) = float32(v)
			return true
		},
	})
}

func registerFloat64(r *Registry) {
	var zero float64
	r.RegisterType(TypeDescriptor{
		Name:      "double",
		Size:      unsafe.Sizeof(zero),
		Alignment: unsafe.Alignof(zero),
		ToString: func(data unsafe.Pointer) (string, bool) {
			v := *(*float64)(data)
			if math.IsNaN(v) {
				return "nan", true
			}
			return strconv.FormatFloat(v, 'f', -1, 64), true
		},
		FromString: func(str string, out unsafe.Pointer) bool {
			v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
			if err != nil {
				return false
			}
			*(*float64)(out) = v
			return true
		},
	})
}

func registerBool(r *Registry) {
	var zero bool
	r.RegisterType(TypeDescriptor{
		Name:      "bool",
		Size:      unsafe.Sizeof(zero),
		Alignment: unsafe.Alignof(zero),
		ToString: func(data unsafe.Pointer) (string, bool) {
			if *(*bool)(data) {
				return "true", true
			}
			return "false", true
		},
		// FromString mirrors the original's liberal parsing: true/false
		// case-insensitively, or any integer where zero means false.
		FromString: func(str string, out unsafe.Pointer) bool {
			s := strings.TrimSpace(str)
			switch strings.ToLower(s) {
			case "true":
				*(*bool)(out) = true
				return true
			case "false":
				*(*bool)(out) = false
				return true
			}
			if i, err := strconv.Atoi(s); err == nil {
				*(*bool)(out) = i != 0
				return true
			}
			return false
		},
	})
}

func registerFixedString(r *Registry, n int) {
	name := fmt.Sprintf("FixedString%d", n)
	r.RegisterType(TypeDescriptor{
		Name:      name,
		Size:      uintptr(n),
		Alignment: 1,
		ToString: func(data unsafe.Pointer) (string, bool) {
			return fixedstring.ReadAt(data, n), true
		},
		FromString: func(str string, out unsafe.Pointer) bool {
			fixedstring.WriteAt(out, n, str)
			return true
		},
	})
}
