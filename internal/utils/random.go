package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomManager 生成某个商户的店长账号
func GenerateRandomManager(password string, emailDomainName string, businessID int64) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleBusinessManager,
		BusinessID:   &businessID,
	}

	return user, nil
}

func GenerateRandomPhone() string {
	prefixes := []string{"130", "135", "138", "150", "186", "199"}
	phone := prefixes[rand.Intn(len(prefixes))]
	for i := 0; i < 8; i++ {
		phone += string(digits[rand.Intn(len(digits))])
	}
	return phone
}

func GenerateRandomEmployee(businessID int64, emailDomainName string) *domain.Employee {
	fullName := GenerateRandomChineseName()
	return &domain.Employee{
		BusinessID: businessID,
		FullName:   fullName,
		Phone:      GenerateRandomPhone(),
		Email:      GenerateUsernameFromChineseName(fullName) + "@" + emailDomainName,
	}
}

var businessWords = []string{"鲜茶", "面馆", "便利店", "烘焙", "咖啡", "书店"}
var branchAreas = []string{"天河", "海珠", "越秀", "番禺", "白云", "黄埔"}

func GenerateRandomBusinessName() string {
	return commonSurnames[rand.Intn(len(commonSurnames))] + "记" + businessWords[rand.Intn(len(businessWords))]
}

func GenerateRandomBranch(businessID int64, index int) *domain.Branch {
	area := branchAreas[rand.Intn(len(branchAreas))]
	return &domain.Branch{
		BusinessID: businessID,
		Name:       fmt.Sprintf("%s%d号店", area, index+1),
		Address:    fmt.Sprintf("%s区%d号", area, rand.Intn(300)+1),
	}
}

var shiftSlots = [][2]string{
	{"07:00:00", "11:00:00"},
	{"11:00:00", "15:00:00"},
	{"15:00:00", "19:00:00"},
	{"19:00:00", "23:00:00"},
}

// GenerateRandomShift 在 week 中随机生成一个班次，employeeID 为空时生成未分配的班次
func GenerateRandomShift(businessID, branchID int64, employeeID *int64, week domain.Week, status domain.ShiftStatus) *domain.ScheduledShift {
	slot := shiftSlots[rand.Intn(len(shiftSlots))]
	return &domain.ScheduledShift{
		BusinessID: businessID,
		EmployeeID: employeeID,
		BranchID:   branchID,
		ShiftDate:  week.Start.AddDate(0, 0, rand.Intn(7)),
		StartTime:  slot[0],
		EndTime:    slot[1],
		Status:     status,
	}
}

// GenerateRandomRequestedShifts 为一周随机挑选若干天提交意向
func GenerateRandomRequestedShifts(week domain.Week) []domain.RequestedShift {
	days := rand.Perm(7)[:rand.Intn(4)+1]
	shifts := make([]domain.RequestedShift, 0, len(days))
	for _, d := range days {
		slot := shiftSlots[rand.Intn(len(shiftSlots))]
		shifts = append(shifts, domain.RequestedShift{
			ShiftDate: week.Start.AddDate(0, 0, d),
			StartTime: slot[0],
			EndTime:   slot[1],
		})
	}
	return shifts
}
