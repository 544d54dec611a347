// Command libborrowledger builds the borrow ledger as a C shared library:
//
//	go build -buildmode=c-shared -o libborrowledger.so ./cmd/libborrowledger
//
// The exported symbols are declared in exports.go, which needs cgo. Without
// cgo the package still builds, as an empty program.
package main

func main() {}
