//go:build cgo

package main

/*
#include <stdint.h>
*/
import "C"

import "github.com/Iron-Ham/borrowledger/internal/capi"

//export borrowledger_init
func borrowledger_init() {
	capi.Init()
}

//export borrowledger_api_version
func borrowledger_api_version() C.uintptr_t {
	return C.uintptr_t(capi.APIVersion())
}

//export borrowledger_try_borrow_shared
func borrowledger_try_borrow_shared(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.TryBorrowShared(uintptr(ptr)))
}

//export borrowledger_try_borrow_exclusive
func borrowledger_try_borrow_exclusive(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.TryBorrowExclusive(uintptr(ptr)))
}

//export borrowledger_unborrow_shared
func borrowledger_unborrow_shared(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.UnborrowShared(uintptr(ptr)))
}

//export borrowledger_unborrow_exclusive
func borrowledger_unborrow_exclusive(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.UnborrowExclusive(uintptr(ptr)))
}

//export borrowledger_is_borrowed_shared
func borrowledger_is_borrowed_shared(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.IsBorrowedShared(uintptr(ptr)))
}

//export borrowledger_is_borrowed_exclusive
func borrowledger_is_borrowed_exclusive(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.IsBorrowedExclusive(uintptr(ptr)))
}

//export borrowledger_is_borrowed
func borrowledger_is_borrowed(ptr C.uintptr_t) C.int32_t {
	return C.int32_t(capi.IsBorrowed(uintptr(ptr)))
}

//export borrowledger_n_shared_borrows
func borrowledger_n_shared_borrows(ptr C.uintptr_t) C.uintptr_t {
	return C.uintptr_t(capi.SharedBorrowCount(uintptr(ptr)))
}
