package spend

// sizeEstimator accumulates the serialized size of a transaction being
// built, input and output at a time (AddXInput/AddXOutput, then Size):
// transparent inputs/outputs plus Sapling spend and Orchard action sizes,
// which is all the spend planner needs to estimate fees.
type sizeEstimator struct {
	numP2PKHInputs  int
	numP2SHInputs   int
	numP2PKHOutputs int
	numSaplingSpends, numSaplingOutputs int
	numOrchardActions                  int
}

const (
	txOverheadBytes    = 10
	p2pkhInputBytes    = 148
	p2shInputBytes     = 150
	p2pkhOutputBytes   = 34
	saplingSpendBytes  = 384
	saplingOutputBytes = 948
	orchardActionBytes = 820
)

func (e *sizeEstimator) AddP2PKHInput() { e.numP2PKHInputs++ }
func (e *sizeEstimator) AddP2SHInput()  { e.numP2SHInputs++ }
func (e *sizeEstimator) AddP2PKHOutput() { e.numP2PKHOutputs++ }
func (e *sizeEstimator) AddSaplingSpend()  { e.numSaplingSpends++ }
func (e *sizeEstimator) AddSaplingOutput() { e.numSaplingOutputs++ }
func (e *sizeEstimator) AddOrchardAction(n int) { e.numOrchardActions += n }

// Size returns the estimated serialized transaction size in bytes.
func (e *sizeEstimator) Size() int64 {
	return int64(txOverheadBytes) +
		int64(e.numP2PKHInputs)*p2pkhInputBytes +
		int64(e.numP2SHInputs)*p2shInputBytes +
		int64(e.numP2PKHOutputs)*p2pkhOutputBytes +
		int64(e.numSaplingSpends)*saplingSpendBytes +
		int64(e.numSaplingOutputs)*saplingOutputBytes +
		int64(e.numOrchardActions)*orchardActionBytes
}

// FeeRate is expressed in zatoshis per thousand bytes.
type FeeRate int64

// FeeForSize returns the fee for a transaction of the given size at this
// rate.
func (r FeeRate) FeeForSize(size int64) int64 {
	fee := int64(r) * size / 1000
	if fee == 0 && r > 0 {
		fee = 1
	}
	return fee
}
