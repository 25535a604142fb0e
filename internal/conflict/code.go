package conflict

import (
	"golang.org/x/crypto/bcrypt"
)

type CodeChecker interface {
	Check(code string) bool
}

// BcryptChecker 启动时把店长授权码哈希，之后只保留哈希值
type BcryptChecker struct {
	hash []byte
}

func NewBcryptChecker(code string) (*BcryptChecker, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &BcryptChecker{hash: hash}, nil
}

func (c *BcryptChecker) Check(code string) bool {
	if code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(code)) == nil
}
