package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"dprcalc/pkg/dice"
	"dprcalc/pkg/dpr"
	"dprcalc/pkg/odds"
)

var ErrUnknownAttacker = errors.New("unknown attacker")

// Attacker 保存的攻击套路: 命中加值 + 伤害表达式 + 每轮攻击次数
type Attacker struct {
	Name        string `json:"name" yaml:"name"`
	AttackBonus int    `json:"attack_bonus" yaml:"attack_bonus"`
	Damage      string `json:"damage" yaml:"damage"`
	Attacks     int    `json:"num_attacks" yaml:"num_attacks"`
}

// Profile builds the attack profile of this attacker against a target AC.
func (a Attacker) Profile(targetDefense int, mode odds.Mode) dpr.Profile {
	return dpr.Profile{
		AttackBonus:   a.AttackBonus,
		TargetDefense: targetDefense,
		Damage:        a.Damage,
		Attacks:       a.Attacks,
		Mode:          mode,
	}
}

func (a Attacker) String() string {
	return fmt.Sprintf("%s: %+d to hit, %s x%d", a.Name, a.AttackBonus, dice.Parse(a.Damage), a.Attacks)
}

// Roster 管理一个群内保存的攻击者
type Roster struct {
	GroupID   int64
	attackers map[string]*Attacker // Key: lowercase name
	mutex     sync.RWMutex
}

// Manager 全局攻击者管理器
type Manager struct {
	groups map[int64]*Roster
	mutex  sync.RWMutex
}

// RosterData 用于导出的数据结构
type RosterData struct {
	GroupID   int64
	Attackers map[string]*Attacker
}

func NewManager() *Manager {
	return &Manager{
		groups: make(map[int64]*Roster),
	}
}

// GetRoster 获取或创建群组名单
func (m *Manager) GetRoster(groupID int64) *Roster {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.groups[groupID]; exists {
		return r
	}

	r := &Roster{
		GroupID:   groupID,
		attackers: make(map[string]*Attacker),
	}
	m.groups[groupID] = r
	return r
}

// Add stores a copy of the attacker, replacing one with the same name.
func (r *Roster) Add(a Attacker) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.attackers[strings.ToLower(a.Name)] = &a
}

// Get 获取攻击者 (名字不区分大小写)
func (r *Roster) Get(name string) (Attacker, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	a, ok := r.attackers[strings.ToLower(name)]
	if !ok {
		return Attacker{}, fmt.Errorf("%w: %s", ErrUnknownAttacker, name)
	}
	return *a, nil
}

// Remove 移除攻击者，返回是否存在
func (r *Roster) Remove(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := strings.ToLower(name)
	_, ok := r.attackers[key]
	delete(r.attackers, key)
	return ok
}

// List returns the attackers sorted by name.
func (r *Roster) List() []Attacker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	list := make([]Attacker, 0, len(r.attackers))
	for _, a := range r.attackers {
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list
}

// Summary 生成名单摘要
func (r *Roster) Summary() string {
	list := r.List()
	if len(list) == 0 {
		return "No saved attackers."
	}

	var sb strings.Builder
	sb.WriteString("Saved attackers:")
	for _, a := range list {
		sb.WriteString("\n- ")
		sb.WriteString(a.String())
	}
	return sb.String()
}

// ExportData 导出所有名单
func (m *Manager) ExportData() map[int64]*RosterData {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	data := make(map[int64]*RosterData)
	for id, r := range m.groups {
		r.mutex.RLock()
		copied := make(map[string]*Attacker, len(r.attackers))
		for k, v := range r.attackers {
			a := *v
			copied[k] = &a
		}
		r.mutex.RUnlock()

		data[id] = &RosterData{
			GroupID:   r.GroupID,
			Attackers: copied,
		}
	}
	return data
}

// ImportData 导入名单，覆盖同一群组的现有数据
func (m *Manager) ImportData(data map[int64]*RosterData) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, d := range data {
		if d == nil {
			logrus.Warnf("Skipping empty roster entry for group %d", id)
			continue
		}
		r := &Roster{
			GroupID:   d.GroupID,
			attackers: make(map[string]*Attacker),
		}
		for k, v := range d.Attackers {
			if v == nil {
				logrus.Warnf("Skipping empty attacker %q in group %d", k, id)
				continue
			}
			a := *v
			r.attackers[strings.ToLower(a.Name)] = &a
		}
		m.groups[id] = r
	}
}
