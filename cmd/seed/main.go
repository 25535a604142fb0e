package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/config"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/repository"
	"github.com/opsdesk/shiftdesk/backend/internal/seed"
	"github.com/opsdesk/shiftdesk/backend/internal/shifttoken"
	"github.com/opsdesk/shiftdesk/backend/internal/submission"
	"github.com/opsdesk/shiftdesk/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var businessID int64
	var weekStart string
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机商户, 2: 生成排班链接, 3: 插入排班意向, 4: 插入随机班次, 5: 导入员工名单)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Int64Var(&businessID, "business-id", 0, "商户 ID")
	flag.StringVar(&weekStart, "week", "", "周内任意一天，默认为下周")
	flag.StringVar(&file, "file", "./employees.csv", "员工名单 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	ctx = context.Background()

	week := domain.WeekOf(time.Now().AddDate(0, 0, 7))
	if weekStart != "" {
		date, err := utils.ParseDate(weekStart)
		if err != nil {
			slog.Error("周格式错误", slog.String("error", err.Error()))
			return
		}
		week = domain.WeekOf(date)
	}

	if op >= 2 && businessID <= 0 {
		slog.Error("请输入合法的商户 ID")
		return
	}

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}
		seedBusiness(ctx, cfg, repo, n)
	case 2:
		issuer := shifttoken.NewIssuer(repo, shifttoken.TTLsFromConfig(cfg), cfg.Token.MaxIssueAttempts)
		links := shifttoken.NewLinks(cfg.Public.Origin)
		employees, err := repo.GetEmployeesByBusinessID(ctx, businessID, true)
		if err != nil {
			slog.Error("无法获取员工", slog.String("error", err.Error()))
			return
		}
		for _, e := range employees {
			token, err := issuer.Issue(ctx, e.ID, domain.TokenPurposeShiftSubmission, &week)
			if err != nil {
				slog.Error("无法生成排班链接", "employeeID", e.ID, slog.String("error", err.Error()))
				continue
			}
			fmt.Printf("%s\t%s\n", e.FullName, links.For(token))
		}
	case 3:
		issuer := shifttoken.NewIssuer(repo, shifttoken.TTLsFromConfig(cfg), cfg.Token.MaxIssueAttempts)
		guard := submission.NewGuard(repo, shifttoken.NewValidator(repo))
		employees, err := repo.GetEmployeesByBusinessID(ctx, businessID, true)
		if err != nil {
			slog.Error("无法获取员工", slog.String("error", err.Error()))
			return
		}

		// 走与员工提交相同的流程，已提交或已发布排班的员工会被跳过
		cnt := 0
		for _, e := range employees {
			token, err := issuer.Issue(ctx, e.ID, domain.TokenPurposeShiftSubmission, &week)
			if err != nil {
				slog.Error("无法生成排班链接", "employeeID", e.ID, slog.String("error", err.Error()))
				continue
			}
			if _, err := guard.Submit(ctx, token.Value, week, utils.GenerateRandomRequestedShifts(week)); err != nil {
				slog.Warn("无法插入排班意向", "employeeID", e.ID, slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入排班意向成功", slog.Int("count", cnt), slog.String("week", week.String()))
	case 4:
		if n <= 0 {
			slog.Error("请输入合法的班次数量")
			return
		}
		branches, err := repo.GetBranchesByBusinessID(ctx, businessID)
		if err != nil || len(branches) == 0 {
			slog.Error("商户没有门店", "error", err)
			return
		}
		employees, err := repo.GetEmployeesByBusinessID(ctx, businessID, true)
		if err != nil {
			slog.Error("无法获取员工", slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			var employeeID *int64
			if len(employees) > 0 {
				employeeID = &employees[rand.Intn(len(employees))].ID
			}
			branch := branches[rand.Intn(len(branches))]
			shift := utils.GenerateRandomShift(businessID, branch.ID, employeeID, week, domain.ShiftStatusApproved)
			if err := repo.InsertScheduledShift(ctx, shift); err != nil {
				slog.Error("无法插入班次", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入班次成功", slog.Int("count", cnt), slog.String("week", week.String()))
	case 5:
		f, err := os.Open(file)
		if err != nil {
			slog.Error("打开文件失败", "error", err)
			return
		}
		defer f.Close()

		result, err := seed.ImportEmployees(ctx, repo, businessID, f)
		if err != nil {
			slog.Error("导入员工失败", "error", err)
			if result == nil {
				return
			}
		}
		slog.Info("导入员工完成", "created", len(result.Created), "existing", result.Existing, "skipped", result.Skipped)
	default:
		slog.Error("指定的操作非法")
	}
}

// seedBusiness 插入一个商户以及它的门店、店长和员工
func seedBusiness(ctx context.Context, cfg *config.Config, repo *repository.Repository, n int) {
	business := &domain.Business{Name: utils.GenerateRandomBusinessName()}
	if err := repo.CreateBusiness(ctx, business); err != nil {
		slog.Error("无法插入商户", slog.String("error", err.Error()))
		return
	}

	for i := 0; i < 3; i++ {
		if err := repo.CreateBranch(ctx, utils.GenerateRandomBranch(business.ID, i)); err != nil {
			slog.Error("无法插入门店", slog.String("error", err.Error()))
		}
	}

	manager, err := utils.GenerateRandomManager(cfg.Seed.ManagerPassword, cfg.Seed.EmailDomain, business.ID)
	if err != nil {
		slog.Error("无法生成店长", slog.String("error", err.Error()))
		return
	}
	if err := repo.CreateUser(ctx, manager); err != nil {
		slog.Error("无法插入店长", slog.String("error", err.Error()))
		return
	}

	cnt := 0
	for i := 0; i < n; i++ {
		if err := repo.CreateEmployee(ctx, utils.GenerateRandomEmployee(business.ID, cfg.Seed.EmailDomain)); err != nil {
			if !errors.Is(err, domain.ErrEmployeeExists) {
				slog.Error("无法插入员工", slog.String("error", err.Error()))
			}
			continue
		}
		cnt++
	}

	slog.Info("插入商户成功", slog.Int64("businessID", business.ID), slog.String("manager", manager.Username), slog.Int("employees", cnt))
}
