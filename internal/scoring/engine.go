// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package scoring implements the SecScore computation engine: the
// Asymmetric Laplace CDF temporal model, the signal-blending formula,
// and the ordered human-readable explanation it emits.
package scoring

import (
	"fmt"
	"math"

	"github.com/secscore-io/secscore/internal/types"
)

const (
	// EPSSBlendWeight is the additive weight applied to a present EPSS score.
	EPSSBlendWeight = 2.5
	// PoCBonusMax is added when any exploit evidence is present.
	PoCBonusMax = 1.0
	// KEVMinFloor is the minimum score enforced for KEV-listed CVEs.
	KEVMinFloor = 8.0

	eMaxDefault = 1.0
	eMinV3      = 0.91

	exponentClampBound = 50.0

	weekMillis = 7 * 24 * 60 * 60 * 1000
)

// cvssV4Maturity holds the source's assumed CVSS v4 exploit-maturity
// scalars. This is not the CVSS v4.0 specification's E metric table —
// per spec.md's Open Questions, the original implementation used a
// fixed ratio of assumed values instead, and that behavior is
// preserved here deliberately.
var cvssV4Maturity = map[string]float64{
	"A": 1.0,  // Attacked
	"P": 0.97, // Proof-of-Concept
	"U": 0.9,  // Unreported
	"X": 1.0,  // Not Defined
}

// AsymmetricLaplaceCdf evaluates the AL-CDF at t weeks for parameters
// (mu, lambda, kappa). Negative t is clamped to 0; non-finite inputs
// yield 0; the result is always clamped to [0, 1].
func AsymmetricLaplaceCdf(t, mu, lambda, kappa float64) float64 {
	if !isFinite(t) || !isFinite(mu) || !isFinite(lambda) || !isFinite(kappa) {
		return 0
	}
	if t < 0 {
		t = 0
	}

	var f float64
	if t <= mu {
		exp := safeExp((lambda / kappa) * (t - mu))
		f = (kappa * kappa / (1 + kappa*kappa)) * exp
	} else {
		exp := safeExp(-lambda * kappa * (t - mu))
		f = 1 - (1/(1+kappa*kappa))*exp
	}
	return clamp01(f)
}

func safeExp(x float64) float64 {
	if !isFinite(x) {
		return 0
	}
	if x < -exponentClampBound {
		return 0
	}
	if x > exponentClampBound {
		x = exponentClampBound
	}
	return math.Exp(x)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// round rounds x to the given number of decimals, half away from
// zero, with a tiny bias to absorb binary-float representation noise
// (e.g. 7.5*0.95*0.96 landing at 6.839999999999999 instead of 6.84).
func round(x float64, decimals int) float64 {
	if !isFinite(x) {
		return x
	}
	factor := math.Pow(10, float64(decimals))
	scaled := x * factor
	bias := 1e-9
	if scaled < 0 {
		bias = -bias
	}
	return math.Round(scaled+bias) / factor
}

func round1(x float64) float64 { return round(x, 1) }

// WeeksSince computes weeks elapsed between publishedMillis and
// nowMillis, clamped to a minimum of 0.
func WeeksSince(nowMillis, publishedMillis int64) float64 {
	diff := float64(nowMillis - publishedMillis)
	weeks := diff / float64(weekMillis)
	if weeks < 0 {
		return 0
	}
	return weeks
}

// Inputs bundles everything ComputeSecScore needs.
type Inputs struct {
	CVSSBase            *float64
	CVSSVersion         string
	RemediationLevel    *float64
	ReportConfidence    *float64
	WeeksSincePublished float64
	Params              types.ModelParams
	EPSS                *types.EPSSSignal
	HasExploit          bool
	KEV                 bool
}

// Result is everything ComputeSecScore derives, including the
// intermediate values the explanation and tests need.
type Result struct {
	SecScore       float64
	TemporalKernel float64
	ExploitProb    float64
	ExploitMaturity float64
	EMin           float64
	EMax           float64
}

// ComputeSecScore implements spec.md §4.1's ten-step composition.
func ComputeSecScore(in Inputs) Result {
	baseScore := 0.0
	if in.CVSSBase != nil && isFinite(*in.CVSSBase) {
		baseScore = *in.CVSSBase
	}

	rl := 1.0
	if in.RemediationLevel != nil {
		rl = *in.RemediationLevel
	}
	rc := 1.0
	if in.ReportConfidence != nil {
		rc = *in.ReportConfidence
	}
	kernel := round1(baseScore * rl * rc)

	p := AsymmetricLaplaceCdf(in.WeeksSincePublished, in.Params.Mu, in.Params.Lambda, in.Params.Kappa)

	eMin := eMinV3
	if len(in.CVSSVersion) > 0 && in.CVSSVersion[0] == '4' {
		eMin = clamp01(cvssV4Maturity["U"] / cvssV4Maturity["A"])
	}
	eMax := eMaxDefault

	eS := eMin + (eMax-eMin)*p

	score := kernel * eS

	if in.EPSS != nil {
		score += EPSSBlendWeight * in.EPSS.Score
	}
	if in.HasExploit {
		score += PoCBonusMax
	}
	if in.KEV && score < KEVMinFloor {
		score = KEVMinFloor
	}

	return Result{
		SecScore:        round1(clamp(score, 0, 10)),
		TemporalKernel:  kernel,
		ExploitProb:     p,
		ExploitMaturity: eS,
		EMin:            eMin,
		EMax:            eMax,
	}
}

// ExplanationContext bundles everything BuildExplanation needs to
// produce spec.md §4.1's ordered explanation entries.
type ExplanationContext struct {
	Category   string
	Params     types.ModelParams
	Weeks      float64
	ExploitProb float64
	ExploitMaturity float64
	Kernel     float64
	KEV        bool
	Exploits   []types.ExploitEvidence
	EPSS       *types.EPSSSignal
	CVSSBase   *float64
	SecScore   float64
}

// BuildExplanation emits the ordered rationale entries, omitting
// categories that don't apply, per spec.md §4.1.
func BuildExplanation(ctx ExplanationContext) []types.ExplanationEntry {
	entries := make([]types.ExplanationEntry, 0, 6)

	entries = append(entries, types.ExplanationEntry{
		Title: "Temporal model",
		Detail: fmt.Sprintf(
			"category=%s mu=%.2f lambda=%.2f kappa=%.2f weeks=%.2f exploitProb=%.3f E_S=%.3f K=%.1f",
			ctx.Category, ctx.Params.Mu, ctx.Params.Lambda, ctx.Params.Kappa,
			ctx.Weeks, ctx.ExploitProb, ctx.ExploitMaturity, ctx.Kernel,
		),
		Source: "secscore",
	})

	if ctx.KEV {
		entries = append(entries, types.ExplanationEntry{
			Title:  "CISA KEV",
			Detail: fmt.Sprintf("listed in the CISA KEV catalog; floor of %.1f applied", KEVMinFloor),
			Source: "cisa-kev",
		})
	}

	if len(ctx.Exploits) > 0 {
		dateStr := "unknown date"
		if ctx.Exploits[0].PublishedDate != nil {
			dateStr = *ctx.Exploits[0].PublishedDate
		}
		entries = append(entries, types.ExplanationEntry{
			Title:  "Exploit PoC",
			Detail: fmt.Sprintf("public proof-of-concept published %s", dateStr),
			Source: "exploitdb",
		})
	}

	if ctx.EPSS != nil {
		bonus := EPSSBlendWeight * ctx.EPSS.Score
		entries = append(entries, types.ExplanationEntry{
			Title:  "EPSS",
			Detail: fmt.Sprintf("score=%.3f percentile=%.3f added +%.2f", ctx.EPSS.Score, ctx.EPSS.Percentile, bonus),
			Source: "epss",
		})
	}

	if ctx.CVSSBase != nil {
		entries = append(entries, types.ExplanationEntry{
			Title:  "CVSS Base",
			Detail: fmt.Sprintf("CVSS base score %.1f used for kernel", *ctx.CVSSBase),
			Source: "cvss",
		})
	} else {
		entries = append(entries, types.ExplanationEntry{
			Title:  "CVSS Missing",
			Detail: "no CVSS base score available; temporal kernel defaulted to 0",
			Source: "cvss",
		})
	}

	entries = append(entries, types.ExplanationEntry{
		Title:  "SecScore",
		Detail: fmt.Sprintf("final SecScore %.1f", ctx.SecScore),
		Source: "secscore",
	})

	return entries
}
