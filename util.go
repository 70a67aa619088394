package main

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"math"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	cryptorand.Read(b)
	return hex.EncodeToString(b)
}

// Vec3 is a position or euler rotation in world space
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Add returns the component-wise sum of two vectors
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Distance returns the euclidean distance between two points
func Distance(a, b Vec3) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt restricts v to [min, max]
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// randFloat returns a random float64 in [0, 1)
// Simple xorshift seeded from crypto/rand; game randomness only
var randSrc uint64

func randFloat() float64 {
	randSrc ^= randSrc << 13
	randSrc ^= randSrc >> 7
	randSrc ^= randSrc << 17
	if randSrc == 0 {
		randSrc = 1
	}
	return float64(randSrc%10000) / 10000.0
}

// randIntn returns a random int in [0, n)
func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(randFloat() * float64(n))
}

// randRange returns a random float64 in [min, max)
func randRange(min, max float64) float64 {
	return min + randFloat()*(max-min)
}

// randSeed returns a positive random integer suitable as a shared
// procedural-generation seed
func randSeed() int64 {
	randFloat()
	return int64(randSrc & 0x7fffffff)
}

func init() {
	b := make([]byte, 8)
	_, _ = cryptorand.Read(b)
	for i, v := range b {
		randSrc |= uint64(v) << (uint(i) * 8)
	}
	if randSrc == 0 {
		randSrc = 1
	}
}
