// Package codegen 生成导出时需要的随机编码：字母数字货号与带校验位的 13 位商品条码。
package codegen

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"skuforge/internal/model"
)

// DefaultEANPrefix 默认的 3 位条码前缀（店内流通码段）
const DefaultEANPrefix = "200"

// Generator 随机编码生成器，可并发使用
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prefix string
}

// NewGenerator 创建生成器；rng 为 nil 时使用按时间播种的 PCG
func NewGenerator(rng *rand.Rand, prefix string) (*Generator, error) {
	if prefix == "" {
		prefix = DefaultEANPrefix
	}
	if len(prefix) != 3 || !isDigits(prefix) {
		return nil, fmt.Errorf("ean prefix must be 3 digits, got %q", prefix)
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Generator{rng: rng, prefix: prefix}, nil
}

// Generate 按类型生成一个随机值
func (g *Generator) Generate(kind model.RandomKind) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch kind {
	case model.RandomAlphanumeric:
		return Alphanumeric(g.rng), nil
	case model.RandomEAN13:
		return EAN13(g.rng, g.prefix), nil
	default:
		return "", fmt.Errorf("unknown random kind %q", kind)
	}
}

// Alphanumeric 3 位大写字母 + 1000-9999 的 4 位数字，例如 "QKD4821"
func Alphanumeric(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(7)
	for i := 0; i < 3; i++ {
		b.WriteByte(byte('A' + rng.IntN(26)))
	}
	fmt.Fprintf(&b, "%d", 1000+rng.IntN(9000))
	return b.String()
}

// EAN13 前缀(3) + 随机 4 位 + 随机 5 位 + 校验位
func EAN13(rng *rand.Rand, prefix string) string {
	base := fmt.Sprintf("%s%04d%05d", prefix, rng.IntN(10000), rng.IntN(100000))
	return base + string(rune('0'+CheckDigit(base)))
}

// CheckDigit 计算 12 位数字串的校验位：偶数位权重 1，奇数位权重 3（0 起始）
func CheckDigit(base12 string) int {
	sum := 0
	for i := 0; i < len(base12); i++ {
		d := int(base12[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return (10 - sum%10) % 10
}

// ValidEAN13 校验 13 位条码
func ValidEAN13(code string) bool {
	if len(code) != 13 || !isDigits(code) {
		return false
	}
	return CheckDigit(code[:12]) == int(code[12]-'0')
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
