package util

import (
	"reflect"
	"unsafe"
)

// ByteToString converts a byte slice to a string without copying.
// The caller must not mutate b afterwards.
func ByteToString(b []byte) string {
	/* #nosec G103 */
	return *(*string)(unsafe.Pointer(&b))
}

// StringToByte converts a string to a byte slice without copying.
// The returned slice must be treated as read only.
func StringToByte(s string) []byte {
	/* #nosec G103 */
	sh := (*reflect.StringHeader)(unsafe.Pointer(&s))
	var b []byte
	/* #nosec G103 */
	bh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	bh.Data, bh.Len, bh.Cap = sh.Data, sh.Len, sh.Len
	return b
}
