package mem

import (
	"reflect"
	"unsafe"
)

// toBytes overlays a []byte of the given length on top of a raw address.
// This is the same reflect.SliceHeader trick the teacher's bitmap allocator
// uses to hand out slices backed by memory the Go allocator does not own.
func toBytes(addr uintptr, count uintptr) []byte {
	var hdr reflect.SliceHeader
	hdr.Data = addr
	hdr.Len = int(count)
	hdr.Cap = int(count)
	return *(*[]byte)(unsafe.Pointer(&hdr))
}
