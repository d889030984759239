package testkit

// CalcWasm is a small module named "calc": it imports env.log (i32) -> (),
// defines "sum" (i32, i32) -> i32 exported as "add", and exports one page of
// memory as "memory". The name section carries the module and function names.
var CalcWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i32 i32) -> i32, (i32) -> ()
	0x01, 0x0b, 0x02,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	// import: env.log, type 1
	0x02, 0x0b, 0x01,
	0x03, 'e', 'n', 'v', 0x03, 'l', 'o', 'g', 0x00, 0x01,
	// function: one body of type 0
	0x03, 0x02, 0x01, 0x00,
	// memory: min 1
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export: "add" -> func 1, "memory" -> memory 0
	0x07, 0x10, 0x02,
	0x03, 'a', 'd', 'd', 0x00, 0x01,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	// code: local.get 0, local.get 1, i32.add
	0x0a, 0x09, 0x01,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	// custom "name": module "calc", functions 0 "log", 1 "sum"
	0x00, 0x19,
	0x04, 'n', 'a', 'm', 'e',
	0x00, 0x05, 0x04, 'c', 'a', 'l', 'c',
	0x01, 0x0b, 0x02,
	0x00, 0x03, 'l', 'o', 'g',
	0x01, 0x03, 's', 'u', 'm',
}

// EmptyWasm is the smallest valid module.
var EmptyWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// TruncatedWasm cuts CalcWasm in the middle of its import section.
var TruncatedWasm = CalcWasm[:24]
