package config

// DefaultYAML is written by `filegirl init`
const DefaultYAML = `protected_dirs: # directories to protect
    - /var/www/html/
backup_dir: /tmp/backup
white_names: # exempt file names (regular expressions)
    - filegirl
hash_algorithm: sha256 # or md5
quarantine_dir: "" # keep tampered content here before reverting it
journal_path: "" # bbolt incident journal, e.g. /var/lib/filegirl/journal.db
http_addr: "" # status and metrics listener, e.g. 127.0.0.1:9740
reaction_rate: 0 # reactions per second per directory, 0 means unlimited
# When false, moving a protected file out of the tree (mv index.html /tmp)
# is not reverted and the file stays missing. Set true to restore it.
rename_as_remove: false
logging:
    level: debug
    file: ""
    max_size: 100
    max_backups: 5
    max_age: 30
    compress: true
    json: false
`
