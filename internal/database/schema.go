package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    first_name VARCHAR(255),
    username VARCHAR(255),
    locale VARCHAR(8) NOT NULL DEFAULT 'en',
    joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    banned TINYINT(1) NOT NULL DEFAULT 0,
    referred_by BIGINT NULL,
    referral_rewarded TINYINT(1) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS quota (
    user_id BIGINT PRIMARY KEY,
    used INT NOT NULL DEFAULT 0,
    bonus INT NOT NULL DEFAULT 0,
    last_reset CHAR(10) NOT NULL
);

CREATE TABLE IF NOT EXISTS domains (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    subdomain VARCHAR(255) NOT NULL,
    ip VARCHAR(64) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    KEY idx_domains_user (user_id)
);

CREATE TABLE IF NOT EXISTS settings (
    name VARCHAR(191) PRIMARY KEY,
    value TEXT NOT NULL
);
`
