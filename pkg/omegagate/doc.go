// Package omegagate computes the rolling confidence score that gates
// admission into the rest of the core. The formula and its weights are
// fixed by design and never exposed as configuration:
//
//	Ω = 0.4·(1−CVaRα) + 0.3·(1−β) + 0.2·(1−ERR5m) + 0.1·Idem
//
// CVaRα is the mean of the worst α=5% of recent action losses (loss =
// 1−confidence) over a window of the last 100 actions. β is the recent
// validation failure rate. ERR5m is the error rate over the trailing five
// minutes. Idem is the idempotent fraction of webhook deliveries. Ω below
// the Gate's admission threshold (0.90 unless set via NewWithThreshold)
// means the gate refuses admission.
package omegagate
