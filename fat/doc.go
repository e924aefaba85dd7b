// Package fat implements the File Allocation Table of a blockfs store: one
// 16-bit entry per block, stored in a single reserved block, which marks the
// block as free, as the last block of a file or points to the next block of
// the file.
//
// Block 0 (the root directory) and block 1 (the table itself) are reserved and
// always marked as end of chain, so they can never be allocated.
//
// A Table is a transient value: callers load it, mutate it in memory and save
// it back once their operation succeeded.
package fat
