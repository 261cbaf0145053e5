package abi

// Entry is the dense index of a dispatch-table entry. Values are part of
// the ABI: new entries are appended before numEntries, existing values
// never change.
type Entry int

const (
	Dup Entry = iota
	Close
	LongFromLong
	LongAsLong
	FloatFromDouble
	FloatAsDouble
	DictNew
	DictSetItem
	DictGetItem
	ListNew
	ListAppend
	ErrSetString
	ErrOccurred
	ErrClear
	TrackerNew
	TrackerAdd
	TrackerClose
	TrackerForgetAll
	FieldStore
	FieldLoad
	GlobalStore
	GlobalLoad

	numEntries
)

type entryInfo struct {
	name  string
	arity int
}

var entries = [numEntries]entryInfo{
	Dup:              {"ctx_Dup", 1},
	Close:            {"ctx_Close", 1},
	LongFromLong:     {"ctx_Long_FromLong", 1},
	LongAsLong:       {"ctx_Long_AsLong", 1},
	FloatFromDouble:  {"ctx_Float_FromDouble", 1},
	FloatAsDouble:    {"ctx_Float_AsDouble", 1},
	DictNew:          {"ctx_Dict_New", 0},
	DictSetItem:      {"ctx_Dict_SetItem", 3},
	DictGetItem:      {"ctx_Dict_GetItem", 2},
	ListNew:          {"ctx_List_New", 0},
	ListAppend:       {"ctx_List_Append", 2},
	ErrSetString:     {"ctx_Err_SetString", 1},
	ErrOccurred:      {"ctx_Err_Occurred", 0},
	ErrClear:         {"ctx_Err_Clear", 0},
	TrackerNew:       {"ctx_Tracker_New", 1},
	TrackerAdd:       {"ctx_Tracker_Add", 2},
	TrackerClose:     {"ctx_Tracker_Close", 1},
	TrackerForgetAll: {"ctx_Tracker_ForgetAll", 1},
	FieldStore:       {"ctx_Field_Store", 3},
	FieldLoad:        {"ctx_Field_Load", 2},
	GlobalStore:      {"ctx_Global_Store", 2},
	GlobalLoad:       {"ctx_Global_Load", 1},
}

var byName = func() map[string]Entry {
	m := make(map[string]Entry, numEntries)
	for i, e := range entries {
		m[e.name] = Entry(i)
	}
	return m
}()

// NumEntries returns the number of entries in this ABI version.
func NumEntries() int {
	return int(numEntries)
}

// Name returns the stable name of e.
func (e Entry) Name() string {
	if e < 0 || e >= numEntries {
		return "ctx_<invalid>"
	}
	return entries[e].name
}

// Arity returns the argument count e expects.
func (e Entry) Arity() int {
	if e < 0 || e >= numEntries {
		return -1
	}
	return entries[e].arity
}

// String returns the stable name of e.
func (e Entry) String() string {
	return e.Name()
}
