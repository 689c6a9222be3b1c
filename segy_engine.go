// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "math"

// balancedBatches computes the per-rank batch plan of §4.5's
// collective-balance protocol: given this rank's local trace count and
// the memory-budget-derived maxPerBatch, it returns a list of batch sizes
// (the rank's own ceil(localCount/maxPerBatch) real batches) plus the
// count of trailing null batches every rank must still issue so that the
// slowest rank in the group never stalls waiting for a peer that has
// already finished its real work.
func balancedBatches(comm Communicator, localCount int64, maxPerBatch int64) (real []int64, nullBatches int) {
	if maxPerBatch <= 0 {
		maxPerBatch = 1
	}
	localBatchCount := ceilDiv(localCount, maxPerBatch)
	biggest := int64(comm.Max(float64(localCount)))
	biggestBatchCount := ceilDiv(biggest, maxPerBatch)
	extra := biggestBatchCount - localBatchCount

	real = make([]int64, 0, localBatchCount)
	remaining := localCount
	for remaining > 0 {
		n := maxPerBatch
		if n > remaining {
			n = remaining
		}
		real = append(real, n)
		remaining -= n
	}
	return real, int(extra)
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// MaxTracesPerBatch computes the per-batch trace cap from a memory budget,
// per §4.5: M / (memory_usage_per_header + 240 + 4*ns).
func MaxTracesPerBatch(memoryBudget int64, memoryUsagePerHeader int, ns int) int64 {
	perTrace := int64(memoryUsagePerHeader) + int64(TraceHeaderSize) + 4*int64(ns)
	if perTrace <= 0 {
		return 1
	}
	n := memoryBudget / perTrace
	if n < 1 {
		n = 1
	}
	return n
}

// InputFile is the read-mode SEG-Y engine of §4.5: open() reads the reel
// and exposes read_metadata/read_trace style operations, all collective
// over its Communicator.
type InputFile struct {
	comm   Communicator
	errlog *Log
	file   *BinaryFile
	Reel   *Reel
}

// OpenInputFile opens path for read and populates the reel cache, per
// §4.5's open() contract. Every rank in comm's group must call this.
func OpenInputFile(comm Communicator, errlog *Log, path string) (*InputFile, error) {
	bf, err := OpenBinaryFile(comm, errlog, path, ReadOnly)
	if err != nil {
		return nil, err
	}
	size := bf.GetFileSize()
	raw := make([]byte, ReelSize)
	bf.Read(0, ReelSize, raw)
	reel := ParseReel(raw, errlog)
	reel.NT = reel.NTFromFileSize(size)
	return &InputFile{comm: comm, errlog: errlog, file: bf, Reel: reel}, nil
}

// Close releases the underlying handle.
func (in *InputFile) Close() error { return in.file.Close() }

func (in *InputFile) traceHeaderOffset(trace int64) int64 {
	return ReelSize + trace*in.Reel.TraceSize()
}

// ReadMetadata reads count trace-header slots starting at global trace
// offset into rows [skip, skip+count) of table, per §4.5. A zero-arg null
// call (count == 0) is the collective-balance placeholder of §4.5's
// read_metadata() contract: it participates in the collective but
// transfers no data.
func (in *InputFile) ReadMetadata(offset int64, count int, table *TraceMetadata, skip int) {
	if count == 0 {
		return
	}
	in.clampCount(&offset, &count)
	if count <= 0 {
		return
	}
	buf := make([]byte, int64(count)*TraceHeaderSize)
	in.file.ReadNoncontiguous(in.traceHeaderOffset(offset), TraceHeaderSize, in.Reel.TraceSize(), count, buf)
	ExtractTraceMetadata(count, buf, table, TraceHeaderSize, skip)
}

// ReadMetadataNull is the zero-arg null call of §4.5: a rank that has
// exhausted its local batches while peers still have work calls this to
// participate in the collective without transferring data.
func (in *InputFile) ReadMetadataNull() {
	in.ReadMetadata(0, 0, nil, 0)
}

// ReadMetadataNonContiguous is the arbitrary-index form of ReadMetadata,
// per §4.5.
func (in *InputFile) ReadMetadataNonContiguous(offsets []int64, table *TraceMetadata, skip int) {
	count := len(offsets)
	if count == 0 {
		return
	}
	byteOffsets := make([]int64, count)
	for i, o := range offsets {
		byteOffsets[i] = in.traceHeaderOffset(o)
	}
	buf := make([]byte, int64(count)*TraceHeaderSize)
	in.file.ReadNoncontiguousIrregular(TraceHeaderSize, byteOffsets, buf)
	ExtractTraceMetadata(count, buf, table, TraceHeaderSize, skip)
}

// ReadTrace reads count traces' samples (and, if table != nil, metadata)
// starting at global trace offset, per §4.5. Samples are decoded per
// Reel.NumberFormat into samples, a count*ns float32 buffer.
func (in *InputFile) ReadTrace(offset int64, count int, samples []float32, table *TraceMetadata, skip int) {
	if count == 0 {
		return
	}
	in.clampCount(&offset, &count)
	if count <= 0 {
		return
	}
	traceSize := in.Reel.TraceSize()
	buf := make([]byte, int64(count)*traceSize)
	in.file.ReadNoncontiguous(in.traceHeaderOffset(offset), traceSize, traceSize, count, buf)

	if table != nil {
		headers := make([]byte, int64(count)*TraceHeaderSize)
		for i := 0; i < count; i++ {
			copy(headers[i*TraceHeaderSize:(i+1)*TraceHeaderSize], buf[int64(i)*traceSize:int64(i)*traceSize+TraceHeaderSize])
		}
		ExtractTraceMetadata(count, headers, table, TraceHeaderSize, skip)
	}

	for i := 0; i < count; i++ {
		traceBuf := buf[int64(i)*traceSize+TraceHeaderSize : int64(i+1)*traceSize]
		for s := 0; s < in.Reel.NS; s++ {
			sampleBytes := traceBuf[s*4 : s*4+4]
			var v float32
			if in.Reel.NumberFormat == IBMFloatFormat {
				v = IBMToIEEE(sampleBytes)
			} else {
				v = BEFloat32(sampleBytes)
			}
			samples[(skip+i)*in.Reel.NS+s] = v
		}
	}
}

// ReadTraceNonContiguous reads samples/metadata at arbitrary, not
// necessarily increasing indices, per §4.5.
func (in *InputFile) ReadTraceNonContiguous(offsets []int64, samples []float32, table *TraceMetadata, skip int) {
	for i, o := range offsets {
		in.ReadTrace(o, 1, samples, table, skip+i)
	}
}

// ReadNonMonotonic reads samples/metadata for offsets that may repeat and
// be out of order, per §4.5/§9: it de-duplicates and sorts the index list,
// issues one monotonic read, then scatters results to the requested
// order, copying the same decoded payload into every slot that requested
// a duplicate offset.
func (in *InputFile) ReadNonMonotonic(offsets []int64, samples []float32, table *TraceMetadata, skip int) {
	count := len(offsets)
	if count == 0 {
		return
	}
	sorted, order := dedupeSortIndices(offsets)

	unique := sorted[:0:0]
	uniqueToRequested := map[int64][]int{}
	for i, o := range sorted {
		if len(unique) == 0 || unique[len(unique)-1] != o {
			unique = append(unique, o)
		}
		requestedIdx := order[i]
		uniqueToRequested[o] = append(uniqueToRequested[o], requestedIdx)
	}

	tmpSamples := make([]float32, len(unique)*in.Reel.NS)
	var tmpTable *TraceMetadata
	if table != nil {
		tmpTable = NewTraceMetadata(table.Rules, len(unique))
	}
	in.ReadTraceNonContiguous(unique, tmpSamples, tmpTable, 0)

	for ui, o := range unique {
		for _, reqIdx := range uniqueToRequested[o] {
			copy(samples[(skip+reqIdx)*in.Reel.NS:(skip+reqIdx+1)*in.Reel.NS], tmpSamples[ui*in.Reel.NS:(ui+1)*in.Reel.NS])
			if table != nil {
				table.CopyEntries(skip+reqIdx, tmpTable, ui)
			}
		}
	}
}

// clampCount clamps a read starting at offset for count traces so it
// never runs past nt, per §4.5/§7's out-of-range policy: warn and clamp.
func (in *InputFile) clampCount(offset *int64, count *int) {
	if *offset >= in.Reel.NT {
		in.errlog.Record(KindOutOfRange, "read at trace %d beyond nt=%d", *offset, in.Reel.NT)
		*count = 0
		return
	}
	if *offset+int64(*count) > in.Reel.NT {
		in.errlog.Record(KindOutOfRange, "read at trace %d+%d clamped to nt=%d", *offset, *count, in.Reel.NT)
		*count = int(in.Reel.NT - *offset)
	}
}

// OutputFile is the write-mode SEG-Y engine of §4.5.
type OutputFile struct {
	comm       Communicator
	errlog     *Log
	file       *BinaryFile
	writeText  string
	ns         int
	nsSet      bool
	sampleIntv float64
	maxTrace   int64 // highest offset+count ever written, before the max reduction
	closed     bool
}

// OpenOutputFile creates an empty file at path for write, per §4.5.
func OpenOutputFile(comm Communicator, errlog *Log, path string) (*OutputFile, error) {
	bf, err := OpenBinaryFile(comm, errlog, path, WriteOnly)
	if err != nil {
		return nil, err
	}
	return &OutputFile{comm: comm, errlog: errlog, file: bf}, nil
}

// SetNS sets the (file-wide constant) sample count. Must be called before
// the first WriteTrace, per §7's "missing write_ns" caller-error case. An
// ns outside int16 range cannot be represented in the binary header and is
// a fatal format error.
func (out *OutputFile) SetNS(ns int) {
	if ns < 0 || ns > math.MaxInt16 {
		out.errlog.Record(KindFormat, "ns out of int16 range: %d", ns)
	}
	out.ns = ns
	out.nsSet = true
}

// SetSampleInterval sets the file-wide sample interval, in seconds.
func (out *OutputFile) SetSampleInterval(seconds float64) {
	out.sampleIntv = seconds
}

// SetText sets the reel's text header content, written verbatim (padded
// or truncated to 3200 bytes) at close.
func (out *OutputFile) SetText(text string) {
	out.writeText = text
}

func (out *OutputFile) traceSize() int64 {
	return int64(TraceHeaderSize) + 4*int64(out.ns)
}

func (out *OutputFile) traceHeaderOffset(trace int64) int64 {
	return ReelSize + trace*out.traceSize()
}

// WriteMetadata writes count trace-header slots from rows [skip,
// skip+count) of table to global trace offset, per §4.5. count may be 0
// for the collective-balance null call.
func (out *OutputFile) WriteMetadata(offset int64, count int, table *TraceMetadata, skip int) {
	if count == 0 {
		return
	}
	if !out.nsSet {
		out.errlog.Record(KindCaller, "WriteMetadata called before SetNS")
	}
	out.noteWritten(offset, count)
	buf := make([]byte, int64(count)*TraceHeaderSize)
	InsertTraceMetadata(count, table, buf, TraceHeaderSize, skip)
	out.file.WriteNoncontiguous(out.traceHeaderOffset(offset), TraceHeaderSize, out.traceSize(), count, buf)
}

// WriteTrace writes count traces' samples (always IEEE-float on disk, per
// §6) and, if table != nil, metadata, starting at global trace offset.
func (out *OutputFile) WriteTrace(offset int64, count int, samples []float32, table *TraceMetadata, skip int) {
	if count == 0 {
		return
	}
	if !out.nsSet {
		out.errlog.Record(KindCaller, "WriteTrace called before SetNS")
	}
	out.noteWritten(offset, count)

	traceSize := out.traceSize()
	buf := make([]byte, int64(count)*traceSize)
	if table != nil {
		headers := make([]byte, int64(count)*TraceHeaderSize)
		InsertTraceMetadata(count, table, headers, TraceHeaderSize, skip)
		for i := 0; i < count; i++ {
			copy(buf[int64(i)*traceSize:int64(i)*traceSize+TraceHeaderSize], headers[i*TraceHeaderSize:(i+1)*TraceHeaderSize])
		}
	}
	for i := 0; i < count; i++ {
		traceBuf := buf[int64(i)*traceSize+TraceHeaderSize : int64(i+1)*traceSize]
		for s := 0; s < out.ns; s++ {
			PutBEFloat32(traceBuf[s*4:s*4+4], samples[(skip+i)*out.ns+s])
		}
	}
	out.file.WriteNoncontiguous(out.traceHeaderOffset(offset), traceSize, traceSize, count, buf)
}

// WriteTraceNull is the write-side null counterpart of §4.5's collective
// balance protocol.
func (out *OutputFile) WriteTraceNull() {
	out.WriteTrace(0, 0, nil, nil, 0)
}

// WriteTraceNonContiguous is the arbitrary-index write form of WriteTrace.
func (out *OutputFile) WriteTraceNonContiguous(offsets []int64, samples []float32, table *TraceMetadata, skip int) {
	for i, o := range offsets {
		out.WriteTrace(o, 1, samples, table, skip+i)
	}
}

func (out *OutputFile) noteWritten(offset int64, count int) {
	if end := offset + int64(count); end > out.maxTrace {
		out.maxTrace = end
	}
}

// ReadMetadataBalanced drives ReadMetadata over this rank's entire
// Decomposition in memory-budget-sized batches, issuing the trailing null
// calls required by §4.5's collective-balance protocol so that a rank
// with fewer batches than its peers never causes the group to deadlock
// waiting on a mismatched call sequence (scenario 6 of §8).
func (in *InputFile) ReadMetadataBalanced(decomp Decomposition, rules *RuleSet, memoryBudget int64, process func(table *TraceMetadata, globalOffset int64, count int)) {
	maxPerBatch := MaxTracesPerBatch(memoryBudget, rules.MemoryUsagePerHeader(), in.Reel.NS)
	batches, nullBatches := balancedBatches(in.comm, decomp.Size, maxPerBatch)

	offset := decomp.Offset
	for _, n := range batches {
		table := NewTraceMetadata(rules, int(n))
		in.ReadMetadata(offset, int(n), table, 0)
		process(table, offset, int(n))
		offset += n
	}
	for i := 0; i < nullBatches; i++ {
		in.ReadMetadataNull()
	}
}

// Close materialises the reel at close time: nt is computed as a
// collective max over every rank's maxTrace, tolerating ranks that wrote
// fewer traces than others, per §4.5. Every rank encodes the 3600-byte
// reel image and sizes the file; only rank 0 writes the image, and other
// ranks issue a zero-sized write to preserve collective balance, per §5.
func (out *OutputFile) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true

	nt := int64(math.Round(out.comm.Max(float64(out.maxTrace))))
	reel := &Reel{NS: out.ns, NT: nt, SampleInterval: out.sampleIntv, NumberFormat: IEEEFloatFormat}
	image := reel.Encode(out.writeText)

	out.file.SetFileSize(ReelSize + nt*out.traceSize())
	if out.comm.Rank() == 0 {
		out.file.Write(0, ReelSize, image)
	} else {
		out.file.Write(0, 0, nil)
	}
	out.comm.Barrier()
	return out.file.Close()
}
