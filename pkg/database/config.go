// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"fmt"
	"time"
)

const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
)

// Database 关系型数据库配置
type Database struct {
	Type         string `mapstructure:"type"` // mysql | postgres
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DB           string `mapstructure:"db"`
	SSLMode      string `mapstructure:"sslmode"` // postgres only
	OutPut       bool   `mapstructure:"output"`
	SlowSQL      int    `mapstructure:"slowSQL"` // ms
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxLifetime  int    `mapstructure:"maxLifeTime"`
	MaxIdleTime  int    `mapstructure:"maxIdleTime"`
}

// SetDefaults fills unset fields.
func (c *Database) SetDefaults() {
	if c.Type == "" {
		c.Type = TypeMySQL
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == "" {
		switch c.Type {
		case TypePostgres:
			c.Port = "5432"
		default:
			c.Port = "3306"
		}
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.SlowSQL <= 0 {
		c.SlowSQL = 1000
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 50
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
}

func (c *Database) Validate() error {
	switch c.Type {
	case TypeMySQL, TypePostgres:
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	if c.User == "" || c.DB == "" {
		return fmt.Errorf("incomplete database config: user and db are required")
	}
	return nil
}

// DSN 根据类型拼接连接串
func (c *Database) DSN() string {
	if c.Type == TypePostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DB)
}

func GetConnMaxLifetime(maxLifetime int) time.Duration {
	if maxLifetime > 0 {
		return time.Duration(maxLifetime) * time.Second
	}
	return 300 * time.Second // Default 5 minutes
}

func GetConnMaxIdleTime(maxIdleTime int) time.Duration {
	if maxIdleTime > 0 {
		return time.Duration(maxIdleTime) * time.Second
	}
	return 60 * time.Second // Default 1 minute
}
